/*
	Package stage copies remote inputs (gs://, s3://, file:// references) into a
	local staging directory so that table and field readers work on local files.
*/
package stage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	"gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/s3blob"
	"gocloud.dev/gcp"

	"github.com/janelia-flyem/cvdf/cvdf"
)

// IsRemote returns true if the reference names a bucket object rather than a
// local path.
func IsRemote(ref string) bool {
	return cvdf.HasScheme(ref)
}

// splitRef returns the bucket URL and object key of a reference.
//
//	gs://<bucket>/<key>
//	s3://<bucket>/<key>?region=<region>
//	file:///<dir>/<name>
func splitRef(ref string) (bucketURL, key string, err error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", "", fmt.Errorf("bad input reference %q: %v", ref, err)
	}
	switch u.Scheme {
	case "file":
		dir, name := filepath.Split(u.Path)
		if name == "" {
			return "", "", fmt.Errorf("input reference %q names a directory", ref)
		}
		return "file://" + filepath.Clean(dir), name, nil
	case "gs", "s3":
		key = strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || key == "" {
			return "", "", fmt.Errorf("input reference %q must be %s://<bucket>/<key>", ref, u.Scheme)
		}
		bucketURL = u.Scheme + "://" + u.Host
		if u.RawQuery != "" {
			bucketURL += "?" + u.RawQuery
		}
		return bucketURL, key, nil
	default:
		return "", "", fmt.Errorf("unsupported input scheme %q in %q", u.Scheme, ref)
	}
}

// openBucket opens a bucket.  Google buckets use the default application
// credentials; s3 buckets rely on the AWS environment (AWS_REGION and
// credentials gocloud can find).
func openBucket(ctx context.Context, bucketURL string) (*blob.Bucket, error) {
	if !strings.HasPrefix(bucketURL, "gs://") {
		return blob.OpenBucket(ctx, bucketURL)
	}
	creds, err := gcp.DefaultCredentials(ctx)
	if err != nil {
		return nil, err
	}
	client, err := gcp.NewHTTPClient(gcp.DefaultTransport(), gcp.CredentialsTokenSource(creds))
	if err != nil {
		return nil, err
	}
	return gcsblob.OpenBucket(ctx, client, strings.TrimPrefix(bucketURL, "gs://"), nil)
}

// Stager downloads remote inputs into a directory.
type Stager struct {
	dir string
}

// New returns a stager writing into dir, which is created if needed.
func New(dir string) (*Stager, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating staging directory %s: %v", dir, err)
	}
	return &Stager{dir: dir}, nil
}

// Dir returns the staging directory.
func (s *Stager) Dir() string {
	return s.dir
}

// localPath keeps the bucket and key so equal names in different buckets
// do not collide.
func (s *Stager) localPath(bucketURL, key string) string {
	u, _ := url.Parse(bucketURL)
	host := u.Host
	if u.Scheme == "file" {
		host = "local"
	}
	return filepath.Join(s.dir, u.Scheme, host, filepath.FromSlash(key))
}

// Stage returns a local path for the reference, downloading it if it is
// remote and not already staged with the same size.
func (s *Stager) Stage(ctx context.Context, ref string) (string, error) {
	if !IsRemote(ref) {
		return ref, nil
	}
	bucketURL, key, err := splitRef(ref)
	if err != nil {
		return "", err
	}
	bucket, err := openBucket(ctx, bucketURL)
	if err != nil {
		cvdf.Errorf("Can't open bucket reference @ %q: %v\n", bucketURL, err)
		return "", err
	}
	defer bucket.Close()

	attrs, err := bucket.Attributes(ctx, key)
	if err != nil {
		return "", fmt.Errorf("staging %s: %v", ref, err)
	}
	dst := s.localPath(bucketURL, key)
	if info, err := os.Stat(dst); err == nil && info.Size() == attrs.Size {
		cvdf.Debugf("input %s already staged at %s\n", ref, dst)
		return dst, nil
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return "", err
	}

	timedLog := cvdf.NewTimeLog()
	r, err := bucket.NewReader(ctx, key, nil)
	if err != nil {
		return "", fmt.Errorf("staging %s: %v", ref, err)
	}
	defer r.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), filepath.Base(dst)+".tmp-*")
	if err != nil {
		return "", err
	}
	n, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmp.Name(), dst)
	}
	if err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("staging %s: %v", ref, err)
	}
	timedLog.Infof("staged %s (%s) to %s", ref, humanize.Bytes(uint64(n)), dst)
	return dst, nil
}

// StageAll stages every reference in order.
func (s *Stager) StageAll(ctx context.Context, refs []string) ([]string, error) {
	paths := make([]string, len(refs))
	for i, ref := range refs {
		p, err := s.Stage(ctx, ref)
		if err != nil {
			return nil, err
		}
		paths[i] = p
	}
	return paths, nil
}
