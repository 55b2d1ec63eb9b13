// Package archive keeps a filesystem copy of every exported PDF, one
// directory per document, optionally encrypted at rest.
package archive

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	doccrypt "github.com/CuongBC195/e-contract-backend/pkg/crypt"
)

var log = logrus.StandardLogger().WithField("package", "archive")

type Archive struct {
	dir   string
	crypt *doccrypt.DocCrypt
}

// New opens (and creates if needed) an archive directory. A non-empty
// passphrase turns on at-rest encryption.
func New(dir string, passphrase string) (*Archive, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("unable to create archive directory: %v", err)
		}
	}

	a := &Archive{dir: dir}
	if passphrase != "" {
		var err error
		a.crypt, err = doccrypt.New(passphrase)
		if err != nil {
			return nil, fmt.Errorf("unable to init archive encryption: %v", err)
		}
	}
	return a, nil
}

// Store writes one export artifact and returns its file name.
func (a *Archive) Store(docId string, pdf []byte) (string, error) {
	docDir := path.Join(a.dir, docId)
	if _, err := os.Stat(docDir); os.IsNotExist(err) {
		if err := os.MkdirAll(docDir, 0755); err != nil {
			return "", err
		}
	}

	name := fmt.Sprintf("%d.pdf", time.Now().UnixMilli())
	var src io.Reader = bytes.NewReader(pdf)
	if a.crypt != nil {
		name += ".enc"
		enc, err := a.crypt.Encrypt(src)
		if err != nil {
			return "", err
		}
		src = enc
	}

	f, err := os.Create(path.Join(docDir, name))
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := io.Copy(f, src); err != nil {
		return "", err
	}
	log.Debugf("archived %s", f.Name())
	return name, nil
}

// Retrieve reads one archived artifact back, decrypting when the archive
// is encrypted.
func (a *Archive) Retrieve(docId string, name string) ([]byte, error) {
	f, err := os.Open(path.Join(a.dir, docId, name))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var src io.Reader = f
	if a.crypt != nil {
		dec, err := a.crypt.Decrypt(f)
		if err != nil {
			return nil, err
		}
		src = dec
	}
	return io.ReadAll(src)
}

// List returns the artifact names for one document, oldest first.
func (a *Archive) List(docId string) ([]string, error) {
	entries, err := os.ReadDir(path.Join(a.dir, docId))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
