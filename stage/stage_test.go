package stage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSplitRef(t *testing.T) {
	tests := []struct {
		ref, bucket, key string
	}{
		{"gs://bomex-tracking/clouds/cloud_00001.pq", "gs://bomex-tracking", "clouds/cloud_00001.pq"},
		{"s3://les-runs/BOMEX_00001.nc?region=us-east-2", "s3://les-runs?region=us-east-2", "BOMEX_00001.nc"},
		{"file:///data/run1/cloud_00001.pq", "file:///data/run1", "cloud_00001.pq"},
	}
	for _, tc := range tests {
		bucket, key, err := splitRef(tc.ref)
		if err != nil {
			t.Errorf("splitRef(%q) error: %v", tc.ref, err)
			continue
		}
		if bucket != tc.bucket || key != tc.key {
			t.Errorf("splitRef(%q) = %q, %q; want %q, %q", tc.ref, bucket, key, tc.bucket, tc.key)
		}
	}
	for _, bad := range []string{"gs://bucket-only", "ftp://host/file", "file:///data/dir/"} {
		if _, _, err := splitRef(bad); err == nil {
			t.Errorf("splitRef(%q) should fail", bad)
		}
	}
}

func TestStageLocalPassthrough(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	got, err := s.Stage(context.Background(), "/data/cloud_00001.pq")
	if err != nil {
		t.Fatal(err)
	}
	if got != "/data/cloud_00001.pq" {
		t.Errorf("local path staged to %q", got)
	}
}

func TestStageFileBucket(t *testing.T) {
	src := t.TempDir()
	content := []byte("voxel table bytes")
	if err := os.WriteFile(filepath.Join(src, "cloud_00001.pq"), content, 0644); err != nil {
		t.Fatal(err)
	}
	s, err := New(filepath.Join(t.TempDir(), "staging"))
	if err != nil {
		t.Fatal(err)
	}
	ref := "file://" + filepath.ToSlash(filepath.Join(src, "cloud_00001.pq"))
	paths, err := s.StageAll(context.Background(), []string{ref, ref})
	if err != nil {
		t.Fatal(err)
	}
	if paths[0] != paths[1] {
		t.Errorf("same reference staged to %q and %q", paths[0], paths[1])
	}
	got, err := os.ReadFile(paths[0])
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Errorf("staged content %q, want %q", got, content)
	}
	rel, err := filepath.Rel(s.Dir(), paths[0])
	if err != nil || filepath.IsAbs(rel) || strings.HasPrefix(rel, "..") {
		t.Errorf("staged path %s not under %s", paths[0], s.Dir())
	}

	if _, err := s.Stage(context.Background(), "file://"+filepath.ToSlash(filepath.Join(src, "missing.pq"))); err == nil {
		t.Errorf("expected error staging a missing object")
	}
}
