package uploads

import (
	"errors"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"ugel-incidentes/config"
)

var (
	ErrExtensionNoPermitida   = errors.New("extensión de archivo no permitida")
	ErrNombreInvalido         = errors.New("nombre de archivo inválido")
	ErrArchivoDemasiadoGrande = errors.New("archivo demasiado grande")
)

// Only image evidence is accepted.
var allowedExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
}

type Saver struct {
	dir      string
	maxBytes int64
}

func NewSaver(cfg config.UploadsConfig) *Saver {
	return &Saver{dir: cfg.Dir, maxBytes: cfg.MaxBytes}
}

func AllowedFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	_, ok := allowedExtensions[ext]
	return ok
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// SecureFilename strips directory components and anything outside a
// conservative character set. Returns "" when nothing safe remains.
func SecureFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)
	name = strings.ReplaceAll(name, " ", "_")
	name = unsafeChars.ReplaceAllString(name, "")
	name = strings.Trim(name, "._-")
	if name == "" || name == "." || name == ".." {
		return ""
	}
	return name
}

// Save writes the uploaded file under the configured directory and
// returns the public URL path, always with forward slashes.
func (s *Saver) Save(fh *multipart.FileHeader) (string, error) {
	if !AllowedFile(fh.Filename) {
		return "", ErrExtensionNoPermitida
	}
	name := SecureFilename(fh.Filename)
	if name == "" {
		return "", ErrNombreInvalido
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", err
	}
	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	dstPath := filepath.Join(s.dir, name)
	dst, err := os.Create(dstPath)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	var reader io.Reader = src
	if s.maxBytes > 0 {
		// One extra byte so an oversized upload is detected instead of
		// stored truncated.
		reader = io.LimitReader(src, s.maxBytes+1)
	}
	written, err := io.Copy(dst, reader)
	if err != nil {
		os.Remove(dstPath)
		return "", err
	}
	if s.maxBytes > 0 && written > s.maxBytes {
		os.Remove(dstPath)
		return "", ErrArchivoDemasiadoGrande
	}
	return "/" + strings.ReplaceAll(dstPath, "\\", "/"), nil
}
