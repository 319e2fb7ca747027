// Package filex turns local paths into upload candidates.
package filex

import (
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/gophchat/internal/uploads"
)

// EnsureParentDir creates the directory that will hold file.
func EnsureParentDir(file string) error {
	dir := filepath.Dir(file)
	if err := os.MkdirAll(dir, 0o770); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return nil
}

// Candidate describes one regular file.
func Candidate(path string) (uploads.Candidate, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return uploads.Candidate{}, err
	}
	if !fi.Mode().IsRegular() {
		return uploads.Candidate{}, fmt.Errorf("%s: not a regular file", path)
	}

	return candidate(path, fi, "")
}

// DirCandidates walks root and describes every regular file below it in
// lexical order. Relative paths start with the name of root itself, the way
// browsers report directory selections.
func DirCandidates(root string) ([]uploads.Candidate, error) {
	fi, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("%s: not a directory", root)
	}

	base := filepath.Base(filepath.Clean(root))

	var out []uploads.Candidate
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}

		c, err := candidate(p, info, filepath.ToSlash(filepath.Join(base, rel)))
		if err != nil {
			return err
		}
		out = append(out, c)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	return out, nil
}

func candidate(path string, fi fs.FileInfo, rel string) (uploads.Candidate, error) {
	mt, err := MediaType(path)
	if err != nil {
		return uploads.Candidate{}, err
	}

	return uploads.Candidate{
		Name:         fi.Name(),
		RelativePath: rel,
		Size:         fi.Size(),
		MediaType:    mt,
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}

// MediaType guesses the media type from the extension, falling back to
// sniffing the first bytes of the file.
func MediaType(path string) (string, error) {
	if mt := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); mt != "" {
		if parsed, _, err := mime.ParseMediaType(mt); err == nil {
			return parsed, nil
		}
		return mt, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", err
	}
	if n == 0 {
		return "application/octet-stream", nil
	}

	mt, _, err := mime.ParseMediaType(http.DetectContentType(buf[:n]))
	if err != nil {
		return "application/octet-stream", nil
	}
	return mt, nil
}
