package gateway

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"

	"gmao-cli/internal/model"
)

// Upload is one image file attached to a note.
type Upload struct {
	Name string
	Body io.Reader
}

// NoteUpload is an append-only progress note with optional images.
type NoteUpload struct {
	TaskID int
	Date   model.Date
	Text   string
	Images []Upload
}

// AppendNote posts a note as multipart/form-data (fields task, date, note and repeated image).
func (c *Client) AppendNote(ctx context.Context, n NoteUpload) (model.AdvancementNote, error) {
	const path = "/advancement-notes/"
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fields := [][2]string{
		{"task", strconv.Itoa(n.TaskID)},
		{"date", string(n.Date)},
		{"note", n.Text},
	}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return model.AdvancementNote{}, &Error{Kind: KindOther, Endpoint: path, Message: err.Error(), Err: err}
		}
	}
	for _, img := range n.Images {
		w, err := mw.CreateFormFile("image", filepath.Base(img.Name))
		if err != nil {
			return model.AdvancementNote{}, &Error{Kind: KindOther, Endpoint: path, Message: err.Error(), Err: err}
		}
		if _, err := io.Copy(w, img.Body); err != nil {
			return model.AdvancementNote{}, &Error{Kind: KindOther, Endpoint: path, Message: "read " + img.Name + ": " + err.Error(), Err: err}
		}
	}
	if err := mw.Close(); err != nil {
		return model.AdvancementNote{}, &Error{Kind: KindOther, Endpoint: path, Message: err.Error(), Err: err}
	}

	resp, err := c.send(ctx, http.MethodPost, path, nil, &buf, mw.FormDataContentType())
	if err != nil {
		return model.AdvancementNote{}, err
	}
	defer resp.Body.Close()
	var out model.AdvancementNote
	if err := decodeInto(path, resp, &out); err != nil {
		return model.AdvancementNote{}, err
	}
	return out, nil
}
