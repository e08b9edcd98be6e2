// Command qbank is the local command line tool for the question bank.
//
// Usage:
//
//	qbank seed --index indexdir
//	qbank ingest-text paper_2023.txt --year 2023
//	qbank load ocr_questions.jsonl --resume
//	qbank search "glycolysis AND subject:biology"
//	qbank merge --all
package main

import "github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/internal/cli"

func main() {
	cli.Execute()
}
