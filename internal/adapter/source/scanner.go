package source

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"path/filepath"
	"strings"
	"unicode"

	"codesearch/internal/domain"
	"codesearch/internal/port"
)

// DefaultChunkLines is the window height of one chunk.
const DefaultChunkLines = 40

// Scanner walks a repository and yields fixed-height line chunks lazily,
// file by file. It implements port.ChunkSource.
type Scanner struct {
	walker     *Walker
	tokenizer  port.Tokenizer
	chunkLines int
	repoID     string
}

func NewScanner(walker *Walker, tokenizer port.Tokenizer, chunkLines int, repoID string) *Scanner {
	if chunkLines <= 0 {
		chunkLines = DefaultChunkLines
	}
	return &Scanner{
		walker:     walker,
		tokenizer:  tokenizer,
		chunkLines: chunkLines,
		repoID:     repoID,
	}
}

// Open walks root and returns a stream over its chunks. The walk itself runs
// eagerly (it is cheap); file reads happen lazily per pull.
func (s *Scanner) Open(root string) (port.ChunkStream, error) {
	files, err := s.walker.Walk(root)
	if err != nil {
		return nil, err
	}
	return &stream{
		scanner: s,
		files:   files,
		nextID:  1,
	}, nil
}

type stream struct {
	scanner *Scanner
	files   []string
	fileIdx int
	pending []domain.Chunk
	nextID  uint64
}

// Next returns the next chunk, a *domain.ChunkError for an unreadable file,
// or io.EOF when the walk completes.
func (st *stream) Next() (domain.Chunk, error) {
	for len(st.pending) == 0 {
		if st.fileIdx >= len(st.files) {
			return domain.Chunk{}, io.EOF
		}
		path := st.files[st.fileIdx]
		st.fileIdx++

		chunks, err := st.scanner.chunkFile(path, &st.nextID)
		if err != nil {
			return domain.Chunk{}, &domain.ChunkError{Path: path, Err: err}
		}
		st.pending = chunks
	}

	chunk := st.pending[0]
	st.pending = st.pending[1:]
	return chunk, nil
}

func (st *stream) Close() error {
	st.pending = nil
	st.fileIdx = len(st.files)
	return nil
}

// chunkFile splits one file into fixed-height line windows.
func (s *Scanner) chunkFile(path string, nextID *uint64) ([]domain.Chunk, error) {
	content, err := ReadFile(path)
	if err != nil {
		return nil, err
	}

	lines := strings.Split(content, "\n")
	lang := detectLanguage(path)

	var chunks []domain.Chunk
	for start := 0; start < len(lines); start += s.chunkLines {
		end := start + s.chunkLines
		if end > len(lines) {
			end = len(lines)
		}
		text := strings.Join(lines[start:end], "\n")
		if strings.TrimSpace(text) == "" {
			continue
		}

		identifiers := extractIdentifiers(text)
		tokens := s.tokenizer.Tokenize(text)

		id := *nextID
		*nextID++

		sum := sha256.Sum256([]byte(text))
		chunks = append(chunks, domain.Chunk{
			ID:          id,
			Lang:        lang,
			Path:        path,
			StartLine:   start + 1,
			EndLine:     end,
			Text:        text,
			Identifiers: identifiers,
			Tokens:      tokens,
			Meta: domain.ChunkMetadata{
				ChunkID:    id,
				RepoID:     s.repoID,
				Path:       path,
				Lang:       lang,
				StartLine:  start + 1,
				EndLine:    end,
				TokenCount: len(tokens),
				Checksum:   hex.EncodeToString(sum[:8]),
			},
		})
	}

	return chunks, nil
}

// extractIdentifiers pulls identifier-shaped words out of source text.
func extractIdentifiers(text string) []string {
	seen := make(map[string]struct{})
	var identifiers []string
	var current strings.Builder

	flush := func() {
		if current.Len() < 2 {
			current.Reset()
			return
		}
		word := current.String()
		current.Reset()
		if r := rune(word[0]); unicode.IsDigit(r) {
			return
		}
		if _, dup := seen[word]; dup {
			return
		}
		seen[word] = struct{}{}
		identifiers = append(identifiers, word)
	}

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			current.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()

	return identifiers
}

func detectLanguage(path string) string {
	switch filepath.Ext(path) {
	case ".go":
		return "go"
	case ".py":
		return "python"
	case ".js":
		return "javascript"
	case ".ts", ".tsx":
		return "typescript"
	case ".java":
		return "java"
	case ".c", ".h":
		return "c"
	case ".cpp", ".cc", ".hpp":
		return "cpp"
	case ".rs":
		return "rust"
	case ".rb":
		return "ruby"
	case ".md":
		return "markdown"
	case ".json":
		return "json"
	case ".yaml", ".yml":
		return "yaml"
	case ".sh", ".bash":
		return "shell"
	case ".sql":
		return "sql"
	case ".txt":
		return "text"
	default:
		return "unknown"
	}
}
