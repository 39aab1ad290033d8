package main

import (
	"os"

	answerlinecmder "github.com/papercomputeco/answerline/cmd/answerline"
)

func main() {
	cmd := answerlinecmder.NewAnswerlineCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
