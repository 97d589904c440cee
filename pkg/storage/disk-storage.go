package storage

import (
	"encoding/json"
	"io"
	"os"
	"path"

	"github.com/go-faster/errors"
)

func (p *DiskStorage) ensureFolder(fileName string) error {
	return os.MkdirAll(path.Dir(fileName), 0o755)
}

// writeFile writes to a uniquely named temporary file next to name and
// renames it over name, so concurrent writers never share a temporary file.
func (p *DiskStorage) writeFile(name string, write func(io.Writer) error) error {
	fileName := p.GetFileName(name)
	if err := p.ensureFolder(fileName); err != nil {
		return err
	}

	file, err := os.CreateTemp(path.Dir(fileName), path.Base(fileName)+".tmp-*")
	if err != nil {
		return err
	}
	tmpFileName := file.Name()

	err = write(file)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Chmod(tmpFileName, 0o644)
	}
	if err != nil {
		_ = os.Remove(tmpFileName)
		return err
	}

	return os.Rename(tmpFileName, fileName)
}

// SaveJson writes data to a temporary file and renames it over name.
func (p *DiskStorage) SaveJson(data any, name string) error {
	return p.writeFile(name, func(w io.Writer) error {
		return json.NewEncoder(w).Encode(data)
	})
}

func (p *DiskStorage) LoadJson(data any, filename string) error {
	file, err := os.Open(p.GetFileName(filename))
	if err != nil {
		return err
	}
	defer file.Close()

	err = json.NewDecoder(file).Decode(data)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}

	return nil
}

func (p *DiskStorage) SaveBytes(data []byte, name string) error {
	return p.writeFile(name, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}
