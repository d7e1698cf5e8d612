package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"

	"github.com/dharsanguruparan/booktracker/internal/apperr"
	"github.com/dharsanguruparan/booktracker/internal/auth"
	"github.com/dharsanguruparan/booktracker/internal/books"
	"github.com/dharsanguruparan/booktracker/internal/uploads"
)

func ownerID(r *http.Request) string {
	claims, _ := auth.FromContext(r.Context())
	return claims.UserID
}

func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) error {
	list, err := s.books.List(r.Context(), ownerID(r))
	if err != nil {
		return err
	}
	respondJSON(w, http.StatusOK, list)
	return nil
}

func (s *Server) handleCreateBook(w http.ResponseWriter, r *http.Request) error {
	var in books.Input
	if err := decodeJSON(r, &in); err != nil {
		return err
	}
	b, err := s.books.Create(r.Context(), ownerID(r), in)
	if err != nil {
		return err
	}
	respondJSON(w, http.StatusCreated, b)
	return nil
}

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) error {
	b, err := s.books.Get(r.Context(), ownerID(r), r.PathValue("id"))
	if err != nil {
		return err
	}
	respondJSON(w, http.StatusOK, b)
	return nil
}

func (s *Server) handleUpdateBook(w http.ResponseWriter, r *http.Request) error {
	var in books.Input
	if err := decodeJSON(r, &in); err != nil {
		return err
	}
	b, err := s.books.Update(r.Context(), ownerID(r), r.PathValue("id"), in)
	if err != nil {
		return err
	}
	respondJSON(w, http.StatusOK, b)
	return nil
}

func (s *Server) handleDeleteBook(w http.ResponseWriter, r *http.Request) error {
	if err := s.books.Delete(r.Context(), ownerID(r), r.PathValue("id")); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (s *Server) handleUploadCover(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, uploads.MaxCoverSize+64<<10)
	mr, err := r.MultipartReader()
	if err != nil {
		return apperr.BadRequest("Expecting a multipart form")
	}
	part, err := nextFilePart(mr)
	if err != nil {
		return apperr.BadRequest("Missing file part")
	}
	defer part.Close()

	tmp, err := persistTemp(part, uploads.MaxCoverSize)
	if err != nil {
		return err
	}
	defer os.Remove(tmp.path)
	defer tmp.f.Close()

	b, err := s.books.SetCover(r.Context(), ownerID(r), r.PathValue("id"), tmp.f, tmp.size, tmp.contentType)
	if err != nil {
		return err
	}
	respondJSON(w, http.StatusOK, b)
	return nil
}

type tempUpload struct {
	f           *os.File
	path        string
	size        int64
	contentType string
}

// persistTemp streams part into a temp file, enforcing limit and sniffing the
// content type from the first 512 bytes. The returned file is rewound.
func persistTemp(part *multipart.Part, limit int64) (*tempUpload, error) {
	f, err := os.CreateTemp("", "booktracker-cover-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	cleanup := func() {
		f.Close()
		os.Remove(f.Name())
	}

	var sniff []byte
	buf := make([]byte, 32*1024)
	var written int64
	for {
		n, readErr := part.Read(buf)
		if n > 0 {
			written += int64(n)
			if written > limit {
				cleanup()
				return nil, apperr.BadRequest(fmt.Sprintf("File exceeds limit (%d bytes)", limit))
			}
			if len(sniff) < 512 {
				chunk := min(n, 512-len(sniff))
				sniff = append(sniff, buf[:chunk]...)
			}
			if _, err := f.Write(buf[:n]); err != nil {
				cleanup()
				return nil, fmt.Errorf("write temp file: %w", err)
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				break
			}
			cleanup()
			var tooLarge *http.MaxBytesError
			if errors.As(readErr, &tooLarge) {
				return nil, apperr.BadRequest(fmt.Sprintf("File exceeds limit (%d bytes)", limit))
			}
			return nil, apperr.BadRequest("Failed to read upload")
		}
	}
	if written == 0 {
		cleanup()
		return nil, apperr.BadRequest("Empty file")
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		cleanup()
		return nil, fmt.Errorf("rewind temp file: %w", err)
	}
	return &tempUpload{
		f:           f,
		path:        f.Name(),
		size:        written,
		contentType: uploads.SniffContentType(sniff),
	}, nil
}

func nextFilePart(mr *multipart.Reader) (*multipart.Part, error) {
	for {
		part, err := mr.NextPart()
		if err != nil {
			return nil, err
		}
		if part.FormName() == "file" {
			return part, nil
		}
		part.Close()
	}
}
