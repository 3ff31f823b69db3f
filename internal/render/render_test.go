package render

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chatpage/internal/storage"
	storeMocks "chatpage/internal/storage/mocks"
)

func readerOf(s string) func() io.ReadCloser {
	return func() io.ReadCloser { return io.NopCloser(strings.NewReader(s)) }
}

func TestEngine_Render(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(m *storeMocks.MockSource)
		wantBody  string
		wantErr   error
	}{
		{
			name: "static template",
			setupMock: func(m *storeMocks.MockSource) {
				m.On("Get", mock.Anything, "index.html").
					Return(readerOf("<html><body>hello</body></html>"), storage.ObjectInfo{}, nil)
			},
			wantBody: "<html><body>hello</body></html>",
		},
		{
			name: "missing template",
			setupMock: func(m *storeMocks.MockSource) {
				m.On("Get", mock.Anything, "index.html").
					Return(nil, storage.ObjectInfo{}, storage.ErrObjectNotFound)
			},
			wantErr: ErrTemplateNotFound,
		},
		{
			name: "backend failure",
			setupMock: func(m *storeMocks.MockSource) {
				m.On("Get", mock.Anything, "index.html").
					Return(nil, storage.ObjectInfo{}, errors.New("disk on fire"))
			},
			wantErr: ErrTemplateRender,
		},
		{
			name: "unparsable template",
			setupMock: func(m *storeMocks.MockSource) {
				m.On("Get", mock.Anything, "index.html").
					Return(readerOf("{{ if }"), storage.ObjectInfo{}, nil)
			},
			wantErr: ErrTemplateRender,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := new(storeMocks.MockSource)
			tt.setupMock(src)

			var buf bytes.Buffer
			err := New(src).Render(&buf, "index.html", nil)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantBody, buf.String())
		})
	}
}

func TestEngine_CachesParsedTemplate(t *testing.T) {
	src := new(storeMocks.MockSource)
	src.On("Get", mock.Anything, "index.html").
		Return(readerOf("cached"), storage.ObjectInfo{}, nil).Once()

	e := New(src)
	for i := 0; i < 3; i++ {
		var buf bytes.Buffer
		require.NoError(t, e.Render(&buf, "index.html", nil))
		assert.Equal(t, "cached", buf.String())
	}

	src.AssertNumberOfCalls(t, "Get", 1)
}

func TestEngine_ReloadReadsEveryTime(t *testing.T) {
	src := new(storeMocks.MockSource)
	src.On("Get", mock.Anything, "index.html").
		Return(readerOf("fresh"), storage.ObjectInfo{}, nil)

	e := New(src, WithReload(true))
	for i := 0; i < 3; i++ {
		require.NoError(t, e.Render(io.Discard, "index.html", nil))
	}

	src.AssertNumberOfCalls(t, "Get", 3)
}

func TestEngine_InvalidatePicksUpChanges(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "index.html")
	require.NoError(t, os.WriteFile(file, []byte("v1"), 0o600))

	e := New(storage.NewDirectory(dir))

	var buf bytes.Buffer
	require.NoError(t, e.Render(&buf, "index.html", nil))
	assert.Equal(t, "v1", buf.String())

	require.NoError(t, os.WriteFile(file, []byte("v2"), 0o600))

	buf.Reset()
	require.NoError(t, e.Render(&buf, "index.html", nil))
	assert.Equal(t, "v1", buf.String())

	e.OnChanged(zerolog.Nop())

	buf.Reset()
	require.NoError(t, e.Render(&buf, "index.html", nil))
	assert.Equal(t, "v2", buf.String())
}

func TestEngine_MissingTemplateIsNotCached(t *testing.T) {
	dir := t.TempDir()
	var logs bytes.Buffer
	e := New(storage.NewDirectory(dir), WithPreload("index.html"), WithLogger(zerolog.New(&logs)))

	require.NoError(t, e.Load())
	assert.Equal(t, 1, strings.Count(logs.String(), "Template could not be preloaded"))
	assert.Contains(t, logs.String(), `"level":"warn"`)

	err := e.Render(io.Discard, "index.html", nil)
	assert.ErrorIs(t, err, ErrTemplateNotFound)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("late"), 0o600))

	var buf bytes.Buffer
	require.NoError(t, e.Render(&buf, "index.html", nil))
	assert.Equal(t, "late", buf.String())
}

func TestEngine_LoadWarmsCache(t *testing.T) {
	src := new(storeMocks.MockSource)
	src.On("Get", mock.Anything, "index.html").
		Return(readerOf("warm"), storage.ObjectInfo{}, nil).Once()

	e := New(src, WithPreload("index.html"))
	require.NoError(t, e.Load())
	require.NoError(t, e.Render(io.Discard, "index.html", nil))

	src.AssertNumberOfCalls(t, "Get", 1)
}

func TestEngine_ConcurrentRenders(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("same"), 0o600))

	e := New(storage.NewDirectory(dir))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var buf bytes.Buffer
			assert.NoError(t, e.Render(&buf, "index.html", nil))
			assert.Equal(t, "same", buf.String())
			if i%4 == 0 {
				e.Invalidate()
			}
		}()
	}
	wg.Wait()
}
