package ports

import "choco-cli/internal/types"

type PackageInfoStorePort interface {
	Get(name string) (types.PackageInformation, error)
	Save(info types.PackageInformation) error
	Remove(name string) error
}

type EncryptorPort interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}
