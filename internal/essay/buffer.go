package essay

import (
	"fmt"
	"time"
	"unicode/utf8"
)

// Anchors are rune offsets into the essay response. Byte offsets would
// drift on multi-byte text, so every bound is validated and applied against
// the rune sequence.

func (e *Essay) contentLength() int {
	return utf8.RuneCountInString(e.Response)
}

// deleteRange removes response[start:end) and returns the displacement to
// apply during reconciliation. The buffer is untouched on error.
func (e *Essay) deleteRange(start, end int, now time.Time) (int, error) {
	if start < 0 || end < 0 {
		return 0, fmt.Errorf("%w: negative bound [%d, %d)", ErrInvalidRange, start, end)
	}
	if start > end {
		return 0, fmt.Errorf("%w: start %d exceeds end %d", ErrInvalidRange, start, end)
	}
	runes := []rune(e.Response)
	if end > len(runes) {
		return 0, fmt.Errorf("%w: end %d exceeds length %d", ErrInvalidRange, end, len(runes))
	}

	e.Response = string(runes[:start]) + string(runes[end:])
	e.Version++
	e.LastEditedAtSeconds = now.UTC().Unix()
	return -(end - start), nil
}

// insertAt inserts text before response[pos] and returns the displacement
// to apply during reconciliation. Empty text is a no-op with delta 0.
func (e *Essay) insertAt(pos int, text string, now time.Time) (int, error) {
	if pos < 0 {
		return 0, fmt.Errorf("%w: negative position %d", ErrInvalidRange, pos)
	}
	runes := []rune(e.Response)
	if pos > len(runes) {
		return 0, fmt.Errorf("%w: position %d exceeds length %d", ErrInvalidRange, pos, len(runes))
	}
	if text == "" {
		return 0, nil
	}

	e.Response = string(runes[:pos]) + text + string(runes[pos:])
	e.Version++
	e.LastEditedAtSeconds = now.UTC().Unix()
	return utf8.RuneCountInString(text), nil
}
