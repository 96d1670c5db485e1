package ocr

import (
	"strconv"
	"strings"
)

// TSV columns: level page_num block_num par_num line_num word_num left top width height conf text
const (
	tsvLevel = iota
	tsvPage
	tsvBlock
	tsvPar
	tsvLine
	tsvWord
	tsvLeft
	tsvTop
	tsvWidth
	tsvHeight
	tsvConf
	tsvText
	tsvColumns
)

const wordLevel = 5

// ParseTSV extracts word rows from tesseract TSV output. The header, non-word
// levels, rows without text and rows with confidence -1 are skipped.
func ParseTSV(out string) []Word {
	var words []Word
	for i, ln := range strings.Split(out, "\n") {
		if i == 0 || len(ln) == 0 {
			continue
		}
		cols := strings.Split(strings.TrimRight(ln, "\r"), "\t")
		if len(cols) < tsvColumns {
			continue
		}
		if atoi(cols[tsvLevel]) != wordLevel {
			continue
		}
		text := strings.TrimSpace(strings.Join(cols[tsvText:], "\t"))
		if text == "" {
			continue
		}
		conf, err := strconv.ParseFloat(strings.TrimSpace(cols[tsvConf]), 64)
		if err != nil || conf < 0 {
			continue
		}
		words = append(words, Word{
			Text:       text,
			Confidence: conf,
			Box: Box{
				Left:   atoi(cols[tsvLeft]),
				Top:    atoi(cols[tsvTop]),
				Width:  atoi(cols[tsvWidth]),
				Height: atoi(cols[tsvHeight]),
			},
			BlockNum: atoi(cols[tsvBlock]),
			ParNum:   atoi(cols[tsvPar]),
			LineNum:  atoi(cols[tsvLine]),
			WordNum:  atoi(cols[tsvWord]),
		})
	}
	return words
}

// TextFromWords rebuilds page text: words on a line are joined by spaces,
// lines by newlines, and a blank line separates paragraphs and blocks.
func TextFromWords(words []Word) string {
	var b strings.Builder
	for i, w := range words {
		if i > 0 {
			prev := words[i-1]
			switch {
			case w.BlockNum != prev.BlockNum || w.ParNum != prev.ParNum:
				b.WriteString("\n\n")
			case w.LineNum != prev.LineNum:
				b.WriteByte('\n')
			default:
				b.WriteByte(' ')
			}
		}
		b.WriteString(w.Text)
	}
	return b.String()
}

func atoi(s string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return n
}
