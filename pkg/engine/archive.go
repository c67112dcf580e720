package engine

import (
	"archive/tar"
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/restfulgit/restfulgit/pkg/gitobj"
	"github.com/restfulgit/restfulgit/pkg/proto"
)

// ArchiveFormat names a supported archive container.
type ArchiveFormat string

// Archive formats.
const (
	ZipFormat   ArchiveFormat = "zip"
	TarFormat   ArchiveFormat = "tar"
	TarGzFormat ArchiveFormat = "tar.gz"
)

// Extension returns the filename extension for the format.
func (f ArchiveFormat) Extension() string {
	return "." + string(f)
}

// MediaType returns the content type for the format.
func (f ArchiveFormat) MediaType() string {
	switch f {
	case ZipFormat:
		return "application/zip"
	case TarGzFormat:
		return "application/x-gzip"
	default:
		return "application/x-tar"
	}
}

// Entry timestamps are pinned so the same revision always produces
// byte-identical archives.
var archiveEpoch = time.Unix(0, 0).UTC()

// WriteArchive streams the full recursive contents of the tree at root into
// w as the requested container. Every path is placed under prefix (the
// conventional repo-sha wrapper directory); comment, when set, is recorded
// in tar output as a PAX comment naming the archived commit. Entries are
// written in tree projection order and blobs are streamed, never buffered
// whole.
func WriteArchive(ctx context.Context, s gitobj.Store, w io.Writer, root gitobj.Hash, prefix, comment string, format ArchiveFormat) error {
	switch format {
	case ZipFormat:
		return writeZip(ctx, s, w, root, prefix)
	case TarFormat:
		return writeTar(ctx, s, w, root, prefix, comment)
	case TarGzFormat:
		zw := gzip.NewWriter(w)
		if err := writeTar(ctx, s, zw, root, prefix, comment); err != nil {
			zw.Close() // nolint: errcheck
			return err
		}
		return zw.Close()
	default:
		return fmt.Errorf("archive format %q: %w", format, proto.ErrUnavailable)
	}
}

func writeTar(ctx context.Context, s gitobj.Store, w io.Writer, root gitobj.Hash, prefix, comment string) error {
	tw := tar.NewWriter(w)

	rootHdr := &tar.Header{
		Name:     prefix + "/",
		Typeflag: tar.TypeDir,
		Mode:     0o755,
		ModTime:  archiveEpoch,
		Format:   tar.FormatPAX,
	}
	if comment != "" {
		rootHdr.PAXRecords = map[string]string{"comment": comment}
	}
	if err := tw.WriteHeader(rootHdr); err != nil {
		return err
	}

	err := WalkTree(ctx, s, root, func(e Entry) error {
		name := prefix + "/" + e.Path
		switch {
		case e.IsSubmodule():
			return nil
		case e.IsTree():
			return tw.WriteHeader(&tar.Header{
				Name:     name + "/",
				Typeflag: tar.TypeDir,
				// Git stores no meaningful directory permissions.
				Mode:    0o755,
				ModTime: archiveEpoch,
				Format:  tar.FormatPAX,
			})
		case e.Mode == gitobj.ModeSymlink:
			target, err := ReadBlob(ctx, s, e.Hash)
			if err != nil {
				return err
			}
			return tw.WriteHeader(&tar.Header{
				Name:     name,
				Typeflag: tar.TypeSymlink,
				Linkname: string(target),
				Mode:     0o777,
				ModTime:  archiveEpoch,
				Format:   tar.FormatPAX,
			})
		default:
			r, size, err := s.Blob(ctx, e.Hash)
			if err != nil {
				return err
			}
			defer r.Close() // nolint: errcheck
			hdr := &tar.Header{
				Name:     name,
				Typeflag: tar.TypeReg,
				Mode:     int64(e.Mode & 0o777),
				Size:     size,
				ModTime:  archiveEpoch,
				Format:   tar.FormatPAX,
			}
			if err := tw.WriteHeader(hdr); err != nil {
				return err
			}
			_, err = io.Copy(tw, r)
			return err
		}
	})
	if err != nil {
		return err
	}
	return tw.Close()
}

func writeZip(ctx context.Context, s gitobj.Store, w io.Writer, root gitobj.Hash, prefix string) error {
	zw := zip.NewWriter(w)

	err := WalkTree(ctx, s, root, func(e Entry) error {
		name := prefix + "/" + e.Path
		if e.IsSubmodule() {
			return nil
		}
		if e.IsTree() {
			hdr := &zip.FileHeader{Name: name + "/", Modified: archiveEpoch}
			hdr.SetMode(fs.ModeDir | 0o755)
			_, err := zw.CreateHeader(hdr)
			return err
		}
		hdr := &zip.FileHeader{Name: name, Method: zip.Deflate, Modified: archiveEpoch}
		hdr.SetMode(fs.FileMode(e.Mode & 0o777))
		f, err := zw.CreateHeader(hdr)
		if err != nil {
			return err
		}
		r, _, err := s.Blob(ctx, e.Hash)
		if err != nil {
			return err
		}
		defer r.Close() // nolint: errcheck
		_, err = io.Copy(f, r)
		return err
	})
	if err != nil {
		return err
	}
	return zw.Close()
}
