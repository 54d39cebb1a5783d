package sign

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/ssh"

	"github.com/opencore/gitcore/errkind"
)

// ParseAllowedSigners reads an SSH allowed_signers file (the format
// gpg.ssh.allowedSignersFile names) from r: each line is
// "principal[,principal...] [option...] key-type base64-key [comment]",
// blank lines and lines starting with # are skipped, and options like
// namespaces=/valid-after=/valid-before=/cert-authority are recognized
// and ignored rather than tripping up the key parse.
func ParseAllowedSigners(r io.Reader) (map[string]ssh.PublicKey, error) {
	const maxLineSize = 64 * 1024
	allowed := make(map[string]ssh.PublicKey)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, maxLineSize), maxLineSize)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := parseAllowedSignersLine(line, allowed); err != nil {
			return nil, errkind.New(errkind.ParseError, "sign.ParseAllowedSigners", fmt.Errorf("line %d: %w", lineNum, err))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errkind.New(errkind.ParseError, "sign.ParseAllowedSigners", err)
	}
	return allowed, nil
}

func parseAllowedSignersLine(line string, allowed map[string]ssh.PublicKey) error {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return fmt.Errorf("expected at least a principal and a public key")
	}

	principals := fields[0]
	keyStart := 1
	for keyStart < len(fields) && isAllowedSignersOption(fields[keyStart]) {
		keyStart++
	}
	if keyStart >= len(fields) {
		return fmt.Errorf("no public key found")
	}

	keyLine := strings.Join(fields[keyStart:], " ")
	pubKey, _, _, _, err := ssh.ParseAuthorizedKey([]byte(keyLine))
	if err != nil {
		return fmt.Errorf("parsing public key: %w", err)
	}

	for _, principal := range strings.Split(principals, ",") {
		principal = strings.TrimSpace(principal)
		if principal != "" {
			allowed[principal] = pubKey
		}
	}
	return nil
}

func isAllowedSignersOption(field string) bool {
	return strings.HasPrefix(field, "namespaces=") ||
		strings.HasPrefix(field, "valid-after=") ||
		strings.HasPrefix(field, "valid-before=") ||
		field == "cert-authority"
}
