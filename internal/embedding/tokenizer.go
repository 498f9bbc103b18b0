package embedding

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Token IDs for the start/end-of-text markers in the CLIP vocabulary.
const (
	startOfTextID = 49406
	endOfTextID   = 49407
)

var tokenPattern = regexp.MustCompile(`(?i)<\|startoftext\|>|<\|endoftext\|>|'s|'t|'re|'ve|'m|'ll|'d|[\p{L}]+|[\p{N}]|[^\s\p{L}\p{N}]+`)

// BPETokenizer is the byte-pair-encoding tokenizer used by the CLIP text
// encoder. The vocabulary is reconstructed from the merges file: byte tokens,
// byte tokens with the end-of-word suffix, merged tokens, then the two
// special markers.
type BPETokenizer struct {
	encoder     map[string]int64
	ranks       map[[2]string]int
	byteEncoder map[byte]rune
}

// NewBPETokenizer loads a CLIP merges file (one merge pair per line, optional
// "#version" header) and builds the encoder.
func NewBPETokenizer(mergesPath string) (*BPETokenizer, error) {
	f, err := os.Open(mergesPath)
	if err != nil {
		return nil, fmt.Errorf("open merges file: %w", err)
	}
	defer f.Close()

	t := &BPETokenizer{
		encoder:     make(map[string]int64),
		ranks:       make(map[[2]string]int),
		byteEncoder: bytesToUnicode(),
	}

	// Vocabulary order matches the reference CLIP tokenizer: byte tokens in
	// byte order, then their end-of-word forms, then merges, then markers.
	var vocab []string
	for b := 0; b < 256; b++ {
		vocab = append(vocab, string(t.byteEncoder[byte(b)]))
	}
	base := len(vocab)
	for i := 0; i < base; i++ {
		vocab = append(vocab, vocab[i]+"</w>")
	}

	scanner := bufio.NewScanner(f)
	rank := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#version") {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) != 2 {
			return nil, fmt.Errorf("malformed merge line %q", line)
		}
		t.ranks[[2]string{parts[0], parts[1]}] = rank
		vocab = append(vocab, parts[0]+parts[1])
		rank++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read merges file: %w", err)
	}
	vocab = append(vocab, "<|startoftext|>", "<|endoftext|>")

	for i, tok := range vocab {
		t.encoder[tok] = int64(i)
	}
	return t, nil
}

// Tokenize encodes text into a fixed-length sequence:
// [startoftext] tokens... [endoftext] followed by zero padding. Texts longer
// than contextLength are truncated with endoftext kept as the final token.
func (t *BPETokenizer) Tokenize(text string, contextLength int) []int64 {
	// Room for the start and end markers at minimum.
	if contextLength < 2 {
		contextLength = 2
	}
	ids := make([]int64, contextLength)
	ids[0] = startOfTextID
	pos := 1
	for _, tok := range t.Encode(text) {
		if pos >= contextLength-1 {
			break
		}
		ids[pos] = tok
		pos++
	}
	ids[pos] = endOfTextID
	return ids
}

// Encode returns the BPE token IDs for text, without special markers.
func (t *BPETokenizer) Encode(text string) []int64 {
	text = strings.ToLower(strings.Join(strings.Fields(text), " "))
	var out []int64
	for _, word := range tokenPattern.FindAllString(text, -1) {
		var sb strings.Builder
		for i := 0; i < len(word); i++ {
			sb.WriteRune(t.byteEncoder[word[i]])
		}
		for _, piece := range t.bpe(sb.String()) {
			if id, ok := t.encoder[piece]; ok {
				out = append(out, id)
			}
		}
	}
	return out
}

// bpe splits a word (already byte-encoded) into its merged subword pieces,
// repeatedly applying the lowest-ranked merge.
func (t *BPETokenizer) bpe(word string) []string {
	runes := []rune(word)
	if len(runes) == 0 {
		return nil
	}
	parts := make([]string, len(runes))
	for i, r := range runes {
		parts[i] = string(r)
	}
	parts[len(parts)-1] += "</w>"

	for len(parts) > 1 {
		bestRank := -1
		bestIdx := -1
		for i := 0; i < len(parts)-1; i++ {
			if r, ok := t.ranks[[2]string{parts[i], parts[i+1]}]; ok {
				if bestRank < 0 || r < bestRank {
					bestRank = r
					bestIdx = i
				}
			}
		}
		if bestIdx < 0 {
			break
		}
		merged := parts[bestIdx] + parts[bestIdx+1]
		parts = append(parts[:bestIdx], append([]string{merged}, parts[bestIdx+2:]...)...)
	}
	return parts
}

// bytesToUnicode maps raw bytes to printable unicode runes so every byte has
// a vocabulary entry. Printable ASCII and Latin-1 ranges map to themselves;
// the rest are shifted above U+0100.
func bytesToUnicode() map[byte]rune {
	m := make(map[byte]rune, 256)
	inPrintable := func(b int) bool {
		return (b >= '!' && b <= '~') || (b >= 0xA1 && b <= 0xAC) || (b >= 0xAE && b <= 0xFF)
	}
	n := 0
	for b := 0; b < 256; b++ {
		if inPrintable(b) {
			m[byte(b)] = rune(b)
		} else {
			m[byte(b)] = rune(256 + n)
			n++
		}
	}
	return m
}
