package fetch

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pierrec/lz4/v4"
)

// extractTarGz extracts a tar.gz archive to the destination directory.
func extractTarGz(archivePath, destDir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	gzReader, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("create gzip reader: %w", err)
	}
	defer gzReader.Close()

	return extractTar(tar.NewReader(gzReader), destDir)
}

// extractTarLz4 extracts a tar.lz4 archive to the destination directory.
func extractTarLz4(archivePath, destDir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	return extractTar(tar.NewReader(lz4.NewReader(f)), destDir)
}

func extractTar(tarReader *tar.Reader, destDir string) error {
	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read tar header: %w", err)
		}

		targetPath, err := securePath(destDir, header.Name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(targetPath, os.FileMode(header.Mode)); err != nil {
				return fmt.Errorf("create dir %s: %w", header.Name, err)
			}

		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
				return fmt.Errorf("create parent dir for %s: %w", header.Name, err)
			}

			outFile, err := os.OpenFile(targetPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(header.Mode))
			if err != nil {
				return fmt.Errorf("create file %s: %w", header.Name, err)
			}

			written, copyErr := io.Copy(outFile, tarReader)
			if copyErr != nil {
				outFile.Close()
				return fmt.Errorf("write file %s: %w", header.Name, copyErr)
			}
			if header.Size > 0 && written != header.Size {
				outFile.Close()
				return fmt.Errorf("incomplete extraction of %s: wrote %d of %d bytes (disk full?)", header.Name, written, header.Size)
			}
			if err := outFile.Close(); err != nil {
				return fmt.Errorf("close file %s: %w", header.Name, err)
			}

		case tar.TypeSymlink:
			if filepath.IsAbs(header.Linkname) {
				return fmt.Errorf("absolute symlink not allowed: %s -> %s", header.Name, header.Linkname)
			}
			os.Remove(targetPath)
			if err := os.Symlink(header.Linkname, targetPath); err != nil {
				return fmt.Errorf("create symlink %s: %w", header.Name, err)
			}

		default:
			// Skip other types (hard links, devices, etc.)
			continue
		}
	}

	return nil
}

// extractZip extracts a zip archive to the destination directory.
func extractZip(archivePath, destDir string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer r.Close()

	for _, zf := range r.File {
		targetPath, err := securePath(destDir, zf.Name)
		if err != nil {
			return err
		}

		if zf.FileInfo().IsDir() {
			if err := os.MkdirAll(targetPath, zf.Mode()); err != nil {
				return fmt.Errorf("create dir %s: %w", zf.Name, err)
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
			return fmt.Errorf("create parent dir for %s: %w", zf.Name, err)
		}

		src, err := zf.Open()
		if err != nil {
			return fmt.Errorf("open entry %s: %w", zf.Name, err)
		}

		outFile, err := os.OpenFile(targetPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, zf.Mode())
		if err != nil {
			src.Close()
			return fmt.Errorf("create file %s: %w", zf.Name, err)
		}

		_, copyErr := io.Copy(outFile, src)
		src.Close()
		if copyErr != nil {
			outFile.Close()
			return fmt.Errorf("write file %s: %w", zf.Name, copyErr)
		}
		if err := outFile.Close(); err != nil {
			return fmt.Errorf("close file %s: %w", zf.Name, err)
		}
	}

	return nil
}

// securePath joins an archive entry name onto destDir, rejecting path
// traversal attempts.
func securePath(destDir, name string) (string, error) {
	cleanName := filepath.Clean(name)
	if strings.HasPrefix(cleanName, "..") || strings.HasPrefix(cleanName, "/") {
		return "", fmt.Errorf("invalid path in archive: %s", name)
	}

	targetPath := filepath.Join(destDir, cleanName)
	if targetPath != filepath.Clean(destDir) &&
		!strings.HasPrefix(targetPath, filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("path traversal detected: %s", name)
	}
	return targetPath, nil
}
