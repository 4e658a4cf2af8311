package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/ssh"
)

// LoadSSHPrivateKey loads an unencrypted SSH private key from keyPath.
func LoadSSHPrivateKey(keyPath string) (ssh.Signer, error) {
	keyData, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read SSH key: %w", err)
	}

	signer, err := ssh.ParsePrivateKey(keyData)
	if err != nil {
		return nil, fmt.Errorf("failed to parse SSH key: %w", err)
	}

	return signer, nil
}

// IsSSHKeyEncrypted checks if an SSH private key is encrypted without attempting to decrypt it
func IsSSHKeyEncrypted(keyPath string) (bool, error) {
	keyData, err := os.ReadFile(keyPath)
	if err != nil {
		return false, fmt.Errorf("failed to read SSH key: %w", err)
	}

	_, err = ssh.ParsePrivateKey(keyData)
	if err == nil {
		return false, nil
	}

	var missing *ssh.PassphraseMissingError
	if errors.As(err, &missing) ||
		strings.Contains(err.Error(), "encrypted") ||
		strings.Contains(err.Error(), "passphrase") {
		return true, nil
	}

	return false, fmt.Errorf("invalid SSH key: %w", err)
}

// LoadSSHPrivateKeyWithPassphrase loads an encrypted SSH private key using the provided passphrase
func LoadSSHPrivateKeyWithPassphrase(keyPath string, passphrase string) (ssh.Signer, error) {
	keyData, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read SSH key: %w", err)
	}

	signer, err := ssh.ParsePrivateKeyWithPassphrase(keyData, []byte(passphrase))
	if err != nil {
		return nil, fmt.Errorf("failed to parse SSH key (wrong passphrase?): %w", err)
	}

	return signer, nil
}

// FindSSHKeys scans ~/.ssh for SSH private keys usable for credential
// encryption. ECDSA keys are skipped since their signatures are randomized.
func FindSSHKeys() ([]string, error) {
	sshDir := filepath.Join(GetHomeDir(), ".ssh")

	if _, err := os.Stat(sshDir); os.IsNotExist(err) {
		return []string{}, nil
	}

	keyNames := []string{
		"mdpilot_ed25519",
		"id_ed25519",
		"id_rsa",
	}

	var foundKeys []string
	for _, name := range keyNames {
		keyPath := filepath.Join(sshDir, name)
		if isPrivateKey(keyPath) {
			foundKeys = append(foundKeys, keyPath)
		}
	}

	return foundKeys, nil
}

// isPrivateKey checks if a file is likely an SSH private key
func isPrivateKey(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}

	content := string(data)
	return strings.Contains(content, "BEGIN") &&
		strings.Contains(content, "PRIVATE KEY")
}
