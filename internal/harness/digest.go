package harness

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// digestDomain separates scenario digests from any other hash of the same
// bytes. The version suffix allows changing the encoding later.
const digestDomain = "marbles/scenario/v1"

// digestScenario hashes the decoded scenario, so a YAML file and its CUE
// rendering share a digest while comments and layout never count.
// Format: SHA256(domain + 0x00 + json(scenario))
func digestScenario(s *Scenario) (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("digest scenario: %w", err)
	}
	h := sha256.New()
	h.Write([]byte(digestDomain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}
