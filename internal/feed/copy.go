package feed

import (
	"fmt"
	"io"
	"os"
)

// CopyFile duplicates src at dst, carrying over contents, permission bits
// and the modification time. The serving pipeline keys its cache off mtime,
// so a plain byte copy is not enough. An existing dst is truncated, which
// makes repeated passes over the same destination idempotent. A dst that
// resolves to src itself (same path, hardlink, symlink) is refused before
// anything is opened for writing.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	// O_TRUNC on an alias of src would zero the data before the first read.
	if dstInfo, err := os.Stat(dst); err == nil && os.SameFile(info, dstInfo) {
		return fmt.Errorf("%s and %s are the same file", src, dst)
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	// O_CREATE applies the umask; restore the exact source bits.
	if err := os.Chmod(dst, info.Mode().Perm()); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}
