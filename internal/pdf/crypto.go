package pdf

import (
	"fmt"
	"os"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Credentials contains the passwords for an encrypted PDF.
type Credentials struct {
	UserPassword  string `json:"user_password,omitempty"`
	OwnerPassword string `json:"owner_password,omitempty"`
}

func (c *Credentials) empty() bool {
	return c == nil || (c.UserPassword == "" && c.OwnerPassword == "")
}

// newConfiguration returns a relaxed pdfcpu configuration carrying creds.
func newConfiguration(creds *Credentials) *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if creds != nil {
		conf.UserPW = creds.UserPassword
		conf.OwnerPW = creds.OwnerPassword
	}
	return conf
}

// IsPasswordError reports whether err looks like an encryption failure.
func IsPasswordError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, keyword := range []string{"password", "encrypted", "decrypt"} {
		if strings.Contains(msg, keyword) {
			return true
		}
	}
	return false
}

// IsEncrypted checks whether filename needs a password to be read.
func IsEncrypted(filename string) (bool, error) {
	if _, err := api.PageCountFile(filename); err != nil {
		if IsPasswordError(err) {
			return true, nil
		}
		return false, fmt.Errorf("failed to check PDF encryption status: %w", err)
	}
	return false, nil
}

// Decrypt returns a readable path for filename. Unencrypted files are
// returned unchanged; encrypted ones are decrypted into a temporary file that
// cleanup removes.
func Decrypt(filename string, creds *Credentials) (path string, cleanup func(), err error) {
	noop := func() {}
	encrypted, err := IsEncrypted(filename)
	if err != nil {
		return "", noop, err
	}
	if !encrypted {
		return filename, noop, nil
	}
	if creds.empty() {
		return "", noop, fmt.Errorf("%s is encrypted and no password was given", filename)
	}

	tmp, err := os.CreateTemp("", "pagescan-decrypted-*.pdf")
	if err != nil {
		return "", noop, fmt.Errorf("failed to create temporary file: %w", err)
	}
	_ = tmp.Close()
	remove := func() { _ = os.Remove(tmp.Name()) }

	if err := api.DecryptFile(filename, tmp.Name(), newConfiguration(creds)); err != nil {
		remove()
		return "", noop, fmt.Errorf("failed to decrypt PDF: %w", err)
	}
	return tmp.Name(), remove, nil
}
