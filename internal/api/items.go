package api

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/service"
)

// itemForm is the JSON shape of an item form. Multipart forms use the same
// field names plus an "image" file part.
type itemForm struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Version     *int64 `json:"version"`
}

// listItems handles GET /api/items?q=&status=&claim=.
func (h *Handler) listItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.ParseItemFilter(q.Get("q"), q.Get("status"), q.Get("claim"))

	items, err := h.finder.SearchItems(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// getItem handles GET /api/items/{id}.
func (h *Handler) getItem(w http.ResponseWriter, r *http.Request) {
	id, err := itemID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	item, err := h.finder.GetItem(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// createItem handles POST /api/items.
func (h *Handler) createItem(w http.ResponseWriter, r *http.Request) {
	actor := ActorFrom(r.Context())
	if !actor.IsAuthenticated() {
		writeError(w, r, model.ErrUnauthenticated)
		return
	}

	form, err := h.parseItemForm(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer form.close(r)

	item, err := h.items.Create(r.Context(), actor, form.fields(), form.upload)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, item)
}

// editItem handles POST and PUT /api/items/{id}.
func (h *Handler) editItem(w http.ResponseWriter, r *http.Request) {
	id, err := itemID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	actor := ActorFrom(r.Context())
	if !actor.IsAuthenticated() {
		writeError(w, r, model.ErrUnauthenticated)
		return
	}

	form, err := h.parseItemForm(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer form.close(r)

	item, err := h.items.Edit(r.Context(), actor, id, service.EditRequest{
		Fields:  form.fields(),
		Image:   form.upload,
		Version: form.Version,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// deleteItem handles DELETE /api/items/{id} and POST /api/items/{id}/delete.
func (h *Handler) deleteItem(w http.ResponseWriter, r *http.Request) {
	id, err := itemID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.items.Delete(r.Context(), ActorFrom(r.Context()), id); err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "item deleted"})
}

// claimItem handles POST /api/items/{id}/claim.
func (h *Handler) claimItem(w http.ResponseWriter, r *http.Request) {
	h.changeClaim(w, r, h.items.Claim)
}

// unclaimItem handles POST /api/items/{id}/unclaim.
func (h *Handler) unclaimItem(w http.ResponseWriter, r *http.Request) {
	h.changeClaim(w, r, h.items.Unclaim)
}

type claimFunc func(ctx context.Context, actor *model.Actor, id int64) (*model.Item, error)

func (h *Handler) changeClaim(w http.ResponseWriter, r *http.Request, change claimFunc) {
	id, err := itemID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	item, err := change(r.Context(), ActorFrom(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

func itemID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid item id", errBadRequest)
	}
	return id, nil
}

func (f itemForm) fields() model.ItemFields {
	return model.ItemFields{
		Name:        f.Name,
		Description: f.Description,
		Status:      model.Status(f.Status),
	}
}

// parsedItemForm is an item form together with its optional image.
type parsedItemForm struct {
	itemForm
	upload *service.Upload
	file   multipart.File
}

// parseItemForm reads an item form from a multipart, urlencoded or JSON body.
// The upload is nil when no image was attached.
func (h *Handler) parseItemForm(r *http.Request) (*parsedItemForm, error) {
	form := &parsedItemForm{}

	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := decodeJSON(r, &form.itemForm); err != nil {
			return nil, err
		}
		return form, nil
	}

	if err := r.ParseMultipartForm(h.maxBody); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: malformed form", errBadRequest)
	}

	form.Name = r.FormValue("name")
	form.Description = r.FormValue("description")
	form.Status = r.FormValue("status")

	if v := strings.TrimSpace(r.FormValue("version")); v != "" {
		version, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid version", errBadRequest)
		}
		form.Version = &version
	}

	if r.MultipartForm == nil {
		return form, nil
	}

	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return form, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading image: %w", errBadRequest, err)
	}
	if header.Filename == "" {
		file.Close()
		return form, nil
	}

	form.file = file
	form.upload = &service.Upload{Filename: header.Filename, Content: file}
	return form, nil
}

// close releases the uploaded file and any temporary files of the form.
func (f *parsedItemForm) close(r *http.Request) {
	if f.file != nil {
		f.file.Close()
	}
	if r.MultipartForm != nil {
		_ = r.MultipartForm.RemoveAll()
	}
}
