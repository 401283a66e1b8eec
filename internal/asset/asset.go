// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package asset fetches non-repository dependencies over HTTP: single files
// and compressed source tarballs.
package asset

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog"
	"github.com/ulikunitz/xz"
)

// ErrUnsafePath is returned when an archive entry would land outside the
// extraction directory.
var ErrUnsafePath = errors.New("archive entry escapes destination")

// Client downloads assets.
type Client struct {
	httpClient *http.Client
	userAgent  string
	logger     zerolog.Logger
}

// Option configures Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger download progress is reported to.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a Client. Responses must start within a minute; the
// body transfer itself is bounded only by the caller's context.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				ResponseHeaderTimeout: 60 * time.Second,
				IdleConnTimeout:       90 * time.Second,
			},
		},
		userAgent: "depstrap/1.0",
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) get(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("performing request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: unexpected status: %d", url, resp.StatusCode)
	}
	return resp.Body, nil
}

// Download fetches url into dest. dest only appears once the whole body has
// been written.
func (c *Client) Download(ctx context.Context, url, dest string) error {
	c.logger.Debug().Str("url", url).Str("dest", dest).Msg("downloading")
	body, err := c.get(ctx, url)
	if err != nil {
		return err
	}
	defer body.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".download-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("writing %s: %w", dest, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return err
	}
	c.logger.Debug().Str("dest", dest).Int64("bytes", n).Msg("downloaded")
	return nil
}

// Extract fetches the tarball at url and unpacks it into destDir. The
// compression is chosen from the URL suffix. When every entry sits under a
// single top-level directory, as in release tarballs, that directory
// becomes destDir. destDir only appears once extraction has succeeded.
func (c *Client) Extract(ctx context.Context, url, destDir string) error {
	c.logger.Debug().Str("url", url).Str("dest", destDir).Msg("extracting")
	body, err := c.get(ctx, url)
	if err != nil {
		return err
	}
	defer body.Close()

	r, err := decompress(url, body)
	if err != nil {
		return err
	}
	defer r.Close()

	parent := filepath.Dir(destDir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return err
	}
	tmp, err := os.MkdirTemp(parent, ".extract-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmp)
	if err := os.Chmod(tmp, 0o755); err != nil {
		return err
	}

	if err := untar(r, tmp); err != nil {
		return err
	}
	root, err := singleRoot(tmp)
	if err != nil {
		return err
	}
	return os.Rename(root, destDir)
}

func decompress(url string, r io.Reader) (io.ReadCloser, error) {
	name := strings.ToLower(url)
	switch {
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		gzReader, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("creating gzip reader: %w", err)
		}
		return gzReader, nil
	case strings.HasSuffix(name, ".tar.xz"), strings.HasSuffix(name, ".txz"):
		xzReader, err := xz.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("creating xz reader: %w", err)
		}
		return io.NopCloser(xzReader), nil
	case strings.HasSuffix(name, ".tar.zst"), strings.HasSuffix(name, ".tzst"):
		zstdReader, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("creating zstd reader: %w", err)
		}
		return zstdReader.IOReadCloser(), nil
	case strings.HasSuffix(name, ".tar"):
		return io.NopCloser(r), nil
	}
	return nil, fmt.Errorf("unsupported archive type: %s", url)
}

func untar(r io.Reader, dest string) error {
	tarReader := tar.NewReader(r)
	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading tar entry: %w", err)
		}

		name := filepath.FromSlash(strings.TrimPrefix(header.Name, "./"))
		if name == "" || name == "." {
			continue
		}
		if !filepath.IsLocal(name) {
			return fmt.Errorf("%w: %s", ErrUnsafePath, header.Name)
		}
		// Nothing is created through a symlink, so every target below is
		// the path the entry really lands on.
		if err := checkParents(dest, name); err != nil {
			return err
		}
		target := filepath.Join(dest, name)

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("creating directory %s: %w", target, err)
			}

		case tar.TypeSymlink:
			link := filepath.Join(filepath.Dir(name), filepath.FromSlash(header.Linkname))
			if filepath.IsAbs(header.Linkname) || !filepath.IsLocal(link) {
				return fmt.Errorf("%w: %s -> %s", ErrUnsafePath, header.Name, header.Linkname)
			}
			if err := replace(target); err != nil {
				return err
			}
			if err := os.Symlink(header.Linkname, target); err != nil {
				return fmt.Errorf("creating symlink %s -> %s: %w", target, header.Linkname, err)
			}

		case tar.TypeLink:
			old := filepath.FromSlash(strings.TrimPrefix(header.Linkname, "./"))
			if !filepath.IsLocal(old) {
				return fmt.Errorf("%w: %s => %s", ErrUnsafePath, header.Name, header.Linkname)
			}
			if err := checkParents(dest, old); err != nil {
				return err
			}
			oldPath := filepath.Join(dest, old)
			fi, err := os.Lstat(oldPath)
			if err != nil {
				return fmt.Errorf("hard link %s: %w", header.Name, err)
			}
			if !fi.Mode().IsRegular() {
				return fmt.Errorf("%w: hard link %s => %s is not a regular file", ErrUnsafePath, header.Name, header.Linkname)
			}
			if err := replace(target); err != nil {
				return err
			}
			if err := os.Link(oldPath, target); err != nil {
				return fmt.Errorf("creating hard link %s: %w", target, err)
			}

		case tar.TypeReg:
			if err := replace(target); err != nil {
				return err
			}
			outFile, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(header.Mode).Perm()|0o600)
			if err != nil {
				return fmt.Errorf("creating file %s: %w", target, err)
			}
			written, err := io.Copy(outFile, tarReader)
			outFile.Close()
			if err != nil {
				return fmt.Errorf("writing file %s: %w", target, err)
			}
			if written != header.Size {
				return fmt.Errorf("file size mismatch for %s: expected %d, got %d", target, header.Size, written)
			}
		}
	}
}

// checkParents fails when a directory on the way to name inside dest is a
// symlink.
func checkParents(dest, name string) error {
	dir := filepath.Dir(name)
	if dir == "." {
		return nil
	}
	cur := dest
	for _, part := range strings.Split(dir, string(filepath.Separator)) {
		cur = filepath.Join(cur, part)
		fi, err := os.Lstat(cur)
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if err != nil {
			return err
		}
		if fi.Mode()&fs.ModeSymlink != 0 {
			return fmt.Errorf("%w: %s goes through symlink %s", ErrUnsafePath, name, cur)
		}
	}
	return nil
}

// replace prepares target for a new entry: its parent exists and any
// earlier non-directory entry at the same path is gone.
func replace(target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("creating parent directory for %s: %w", target, err)
	}
	if fi, err := os.Lstat(target); err == nil && !fi.IsDir() {
		if err := os.Remove(target); err != nil {
			return err
		}
	}
	return nil
}

// singleRoot returns the only top-level directory of dir, or dir itself
// when it holds anything else.
func singleRoot(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	if len(entries) == 1 && entries[0].IsDir() {
		return filepath.Join(dir, entries[0].Name()), nil
	}
	return dir, nil
}
