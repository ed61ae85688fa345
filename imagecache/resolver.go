package imagecache

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
)

// Resolver opens the image behind an opaque texture id.
type Resolver interface {
	Open(ctx context.Context, id string) (io.ReadCloser, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, id string) (io.ReadCloser, error)

// Open calls f(ctx, id).
func (f ResolverFunc) Open(ctx context.Context, id string) (io.ReadCloser, error) {
	return f(ctx, id)
}

// DirResolver resolves ids as slash-separated paths below root.
func DirResolver(root string) Resolver {
	return FSResolver(os.DirFS(root))
}

// FSResolver resolves ids as paths in fsys. Ids that are not valid
// fs paths, such as ones escaping the root with "..", are rejected.
func FSResolver(fsys fs.FS) Resolver {
	return fsResolver{fsys: fsys}
}

type fsResolver struct {
	fsys fs.FS
}

func (r fsResolver) Open(ctx context.Context, id string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !fs.ValidPath(id) || id == "." {
		return nil, fmt.Errorf("imagecache: invalid texture id %q: %w", id, fs.ErrInvalid)
	}
	return r.fsys.Open(id)
}
