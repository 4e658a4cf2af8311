package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/ssh"
)

// EncryptionManager encrypts credential data with an AES-256 key derived
// from an SSH key signature.
type EncryptionManager struct {
	sshKeyPath string
	passphrase string
	aesKey     []byte
}

// NewEncryptionManager creates a new encryption manager
func NewEncryptionManager(sshKeyPath string) *EncryptionManager {
	return &EncryptionManager{sshKeyPath: ExpandPath(sshKeyPath)}
}

// SetPassphrase sets the passphrase for decrypting the SSH key
func (e *EncryptionManager) SetPassphrase(passphrase string) {
	e.passphrase = passphrase
}

// Initialize loads the SSH key and derives the AES key.
func (e *EncryptionManager) Initialize() error {
	encrypted, err := IsSSHKeyEncrypted(e.sshKeyPath)
	if err != nil {
		return fmt.Errorf("failed to check SSH key: %w", err)
	}

	if Debug && DebugLog != nil {
		DebugLog.Debugf("[EncryptionManager] Initialize: key encrypted=%v", encrypted)
	}

	if encrypted && e.passphrase == "" {
		return fmt.Errorf("SSH key is encrypted - passphrase required")
	}

	var signer ssh.Signer
	if encrypted {
		signer, err = LoadSSHPrivateKeyWithPassphrase(e.sshKeyPath, e.passphrase)
	} else {
		signer, err = LoadSSHPrivateKey(e.sshKeyPath)
	}
	if err != nil {
		return fmt.Errorf("failed to load SSH key: %w", err)
	}

	aesKey, err := DeriveAESKeyFromSSH(signer)
	if err != nil {
		return fmt.Errorf("failed to derive encryption key: %w", err)
	}
	e.aesKey = aesKey

	return nil
}

// Encrypt encrypts data using AES-256-GCM.
func (e *EncryptionManager) Encrypt(plaintext []byte) ([]byte, error) {
	if e.aesKey == nil {
		return nil, fmt.Errorf("encryption manager not initialized")
	}
	return encryptAESGCM(plaintext, e.aesKey)
}

// Decrypt reverses Encrypt.
func (e *EncryptionManager) Decrypt(ciphertext []byte) ([]byte, error) {
	if e.aesKey == nil {
		return nil, fmt.Errorf("encryption manager not initialized")
	}
	return decryptAESGCM(ciphertext, e.aesKey)
}

// encryptAESGCM encrypts data using AES-256-GCM
// Format: [nonce (12 bytes)][ciphertext + tag]
func encryptAESGCM(plaintext, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// decryptAESGCM decrypts data using AES-256-GCM
// Expects format: [nonce (12 bytes)][ciphertext + tag]
func decryptAESGCM(ciphertext, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, fmt.Errorf("ciphertext too short")
	}

	plaintext, err := gcm.Open(nil, ciphertext[:nonceSize], ciphertext[nonceSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("decryption failed: %w", err)
	}

	return plaintext, nil
}

// DeriveAESKeyFromSSH derives a 32-byte AES-256 key from an SSH key signature.
// The same key always yields the same AES key, so only key types with
// deterministic signatures are accepted.
func DeriveAESKeyFromSSH(signer ssh.Signer) ([]byte, error) {
	if strings.HasPrefix(signer.PublicKey().Type(), "ecdsa") {
		return nil, fmt.Errorf("unsupported key type %s: use an ed25519 or rsa key", signer.PublicKey().Type())
	}

	message := []byte("mdpilot-encryption-key-derivation-v1")

	signature, err := signer.Sign(rand.Reader, message)
	if err != nil {
		return nil, fmt.Errorf("failed to sign message: %w", err)
	}

	hash := sha256.Sum256(signature.Blob)
	return hash[:], nil
}
