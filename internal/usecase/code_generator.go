package usecase

import (
	"crypto/rand"
	"io"
	"strings"

	"access-code-service/internal/domain/model"
)

const (
	defaultGroupSize = 4
	defaultGroups    = 2
	maxGroupSize     = 8
	maxGroups        = 4
)

// GeneratedCode is the one-time view of a freshly generated code. The
// plaintext leaves the process exactly once, in the issuance response.
type GeneratedCode struct {
	Code string
	Hash string
	Hint string
	Mask string
}

// generateCode creates a secure random code of the shape
// PREFIX-XXXX-XXXX using a character set that avoids ambiguous glyphs
// like O/0 and I/1.
func generateCode(prefix string, groupSize, groups int) (GeneratedCode, error) {
	const chars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	if groupSize <= 0 || groupSize > maxGroupSize {
		groupSize = defaultGroupSize
	}
	if groups <= 0 || groups > maxGroups {
		groups = defaultGroups
	}

	buf := make([]byte, groupSize*groups)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return GeneratedCode{}, err
	}
	for i := range buf {
		buf[i] = chars[int(buf[i])%len(chars)]
	}

	parts := make([]string, 0, groups+1)
	parts = append(parts, strings.ToUpper(prefix))
	for g := 0; g < groups; g++ {
		parts = append(parts, string(buf[g*groupSize:(g+1)*groupSize]))
	}
	code := strings.Join(parts, "-")

	return GeneratedCode{
		Code: code,
		Hash: model.HashCode(model.NormalizeCode(code)),
		Hint: model.HintCode(code),
		Mask: model.MaskCode(code),
	}, nil
}
