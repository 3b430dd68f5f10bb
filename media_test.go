package voicelink

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
)

// fakeFileStore is an in-memory media.FileStore for tests.
type fakeFileStore struct {
	mu      sync.Mutex
	next    int
	objects map[string][]byte

	uploadErr error
}

func newFakeFileStore() *fakeFileStore {
	return &fakeFileStore{objects: make(map[string][]byte)}
}

func (f *fakeFileStore) Upload(ctx context.Context, filename, contentType string, content io.Reader) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	data, err := io.ReadAll(content)
	if err != nil {
		return "", err
	}
	f.next++
	uri := fmt.Sprintf("mem://voice/%d", f.next)
	f.objects[uri] = data
	return uri, nil
}

func (f *fakeFileStore) Load(ctx context.Context, uri string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[uri]
	if !ok {
		return nil, fmt.Errorf("fake store: %s not found", uri)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeFileStore) Delete(ctx context.Context, uri string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, uri)
	return nil
}
