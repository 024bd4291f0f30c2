package utils

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"time"
)

var ErrFileTooLarge = errors.New("uploaded file is too large")

// ReadUploadedFile returns the content of an uploaded file of at most
// maxBytes.
func ReadUploadedFile(file *multipart.FileHeader, maxBytes int64) ([]byte, error) {
	if file.Size > maxBytes {
		return nil, ErrFileTooLarge
	}
	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, ErrFileTooLarge
	}
	return data, nil
}

// ArchiveUpload keeps a copy of an imported file under destDir, named by
// upload time, and returns its path.
func ArchiveUpload(data []byte, originalName, destDir string) (string, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", err
	}
	ext := filepath.Ext(originalName)
	newFilename := time.Now().Format("20060102150405") + ext
	filePath := filepath.Join(destDir, newFilename)
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return "", fmt.Errorf("archive upload: %w", err)
	}
	return filePath, nil
}
