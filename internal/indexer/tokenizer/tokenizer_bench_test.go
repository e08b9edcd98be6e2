package tokenizer

import (
	"fmt"
	"strings"
	"testing"
)

var sampleTexts = map[string]string{
	"short": "Explain the process of Glycolysis.",
	"question": `A Carnot engine works between temperatures 727°C and 27°C. The efficiency
	of the heat engine is:
	Options: A) 70%
	B) 30%
	C) 10%
	D) 90%`,
	"paper": strings.Repeat(`Which of the following statements about the Krebs cycle is
	correct? The cycle takes place in the mitochondrial matrix and produces NADH,
	FADH2 and ATP. State Newton's laws of motion and derive the relation between
	momentum and force. `, 40),
}

func BenchmarkTokenize(b *testing.B) {
	for name, text := range sampleTexts {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				tokens := Tokenize(text)
				_ = tokens
			}
		})
	}
}

func BenchmarkTokenizeParallel(b *testing.B) {
	text := sampleTexts["question"]
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			tokens := Tokenize(text)
			_ = tokens
		}
	})
}

func BenchmarkAnalyzeTerm(b *testing.B) {
	words := []string{
		"glycolysis", "thermodynamics", "laws", "motion", "krebs",
		"photosynthesis", "electrolysis", "the", "physics", "lens",
	}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		for _, w := range words {
			terms := AnalyzeTerm(w)
			_ = terms
		}
	}
}

func BenchmarkTokenizeVaryingSize(b *testing.B) {
	base := "glycolysis occurs in the cytoplasm of the cell "
	for _, size := range []int{10, 100, 500, 1000, 5000} {
		text := strings.Repeat(base, size/len(base)+1)[:size]
		b.Run(fmt.Sprintf("bytes_%d", size), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				tokens := Tokenize(text)
				_ = tokens
			}
		})
	}
}
