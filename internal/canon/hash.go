package canon

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/roach88/dragboard/internal/board"
)

// Domain prefixes keep hashes of different kinds of content apart. The
// version suffix leaves room to change the encoding later.
const (
	DomainBoard = "dragboard/board/v1"
	DomainTrace = "dragboard/trace/v1"
)

// Hash computes SHA256(domain + 0x00 + data) as lowercase hex.
func Hash(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// BoardHash identifies a board state. Two states hash equal exactly when
// State.Equal holds between them.
func BoardHash(s board.State) (string, error) {
	data, err := Marshal(s.Clone())
	if err != nil {
		return "", fmt.Errorf("BoardHash: %w", err)
	}
	return Hash(DomainBoard, data), nil
}

// TraceHash identifies a scenario trace by its canonical bytes.
func TraceHash(v any) (string, error) {
	data, err := Marshal(v)
	if err != nil {
		return "", fmt.Errorf("TraceHash: %w", err)
	}
	return Hash(DomainTrace, data), nil
}
