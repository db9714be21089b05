package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/tudextra/inmopilot-ai/internal/academy"
	"github.com/tudextra/inmopilot-ai/internal/images"
	"github.com/tudextra/inmopilot-ai/internal/listing"
	"github.com/tudextra/inmopilot-ai/internal/llm"
	"github.com/tudextra/inmopilot-ai/internal/session"
	"github.com/tudextra/inmopilot-ai/internal/storage"
)

const (
	msgNoImages         = "Por favor, sube al menos una imagen de la propiedad."
	msgUnexpected       = "Ocurrió un error inesperado al contactar con la IA."
	msgImageTooLarge    = "Una de las imágenes supera el tamaño máximo permitido."
	msgInvalidImage     = "Solo se admiten archivos de imagen (JPG, PNG, WEBP, HEIC)."
	msgDownloadFailed   = "No se pudo descargar una de las imágenes indicadas por URL."
	msgRequestTooLarge  = "El envío es demasiado grande. Sube menos imágenes o imágenes más pequeñas."
	msgBadForm          = "No se pudo leer el formulario. Inténtalo de nuevo."
	msgListingNotFound  = "Anuncio no encontrado."
	msgTooManyImagesFmt = "Puedes subir como máximo %d imágenes."
)

var (
	errDownload = errors.New("image download failed")
	errBadForm  = errors.New("invalid form")
)

type generatorPage struct {
	DraftID       string
	Data          listing.ListingData
	PropertyTypes []string
	Tones         []string
	Previews      []session.Preview
	MaxImages     int
	ImageURLs     string
	Error         string
	ErrorField    string
}

type resultPage struct {
	ID         string
	CreatedAt  time.Time
	Data       listing.ListingData
	Result     listing.GenerationResult
	Previews   []session.Preview
	ImageCount int
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	if v := ParseView(r.URL.Query().Get("view")); v != ViewHome {
		http.Redirect(w, r, v.Path(), http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "home", ViewHome, nil)
}

func (s *Server) handleNewDraft(w http.ResponseWriter, r *http.Request) {
	d := s.sessions.New()
	zerolog.Ctx(r.Context()).Debug().Str("draftID", d.ID).Msg("draft created")
	s.renderGenerator(w, r, http.StatusOK, d, "", nil)
}

func (s *Server) handleDraft(w http.ResponseWriter, r *http.Request) {
	d, ok := s.draft(w, r)
	if !ok {
		return
	}
	s.renderGenerator(w, r, http.StatusOK, d, "", nil)
}

func (s *Server) handleAttachImages(w http.ResponseWriter, r *http.Request) {
	d, ok := s.draft(w, r)
	if !ok {
		return
	}
	if err := s.parseForm(w, r); err != nil {
		s.renderGenerator(w, r, statusFor(err), d, "", err)
		return
	}

	roomsErr := s.updateDraftData(r, d)
	if err := s.attachImages(r, d); err != nil {
		s.renderGenerator(w, r, statusFor(err), d, r.FormValue("image_urls"), err)
		return
	}
	if roomsErr != nil {
		s.renderGenerator(w, r, statusFor(roomsErr), d, "", roomsErr)
		return
	}
	s.renderGenerator(w, r, http.StatusOK, d, "", nil)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	d, ok := s.draft(w, r)
	if !ok {
		return
	}
	d.Reset()
	http.Redirect(w, r, "/generator/"+d.ID, http.StatusSeeOther)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())

	d, ok := s.draft(w, r)
	if !ok {
		return
	}
	if err := s.parseForm(w, r); err != nil {
		s.renderGenerator(w, r, statusFor(err), d, "", err)
		return
	}

	roomsErr := s.updateDraftData(r, d)
	if err := s.attachImages(r, d); err != nil {
		s.renderGenerator(w, r, statusFor(err), d, r.FormValue("image_urls"), err)
		return
	}
	if roomsErr != nil {
		s.renderGenerator(w, r, statusFor(roomsErr), d, "", roomsErr)
		return
	}

	data := d.Data()
	if err := data.Validate(); err != nil {
		s.renderGenerator(w, r, statusFor(err), d, "", err)
		return
	}
	imgs := d.Images()
	if len(imgs) == 0 {
		s.renderGenerator(w, r, statusFor(llm.ErrNoImages), d, "", llm.ErrNoImages)
		return
	}

	listingID := uuid.NewString()
	s.journal.Start(listingID, data, len(imgs))

	logger.Info().
		Str("listingID", listingID).
		Str("propertyType", data.PropertyType).
		Int("imageCount", len(imgs)).
		Msg("generating listing")

	result, err := s.gen.GenerateListing(r.Context(), imgs, data)
	if err != nil {
		logger.Error().Err(err).Str("listingID", listingID).Msg("listing generation failed")
		s.journal.Error(listingID, "%v", err)
		s.renderGenerator(w, r, statusFor(err), d, "", err)
		return
	}
	s.journal.Result(listingID, result)

	stored := &storage.StoredListing{
		ID:              listingID,
		Data:            data,
		Description:     result.Description,
		PriceSuggestion: result.PriceSuggestion,
		Sources:         result.Sources,
		ImageCount:      len(imgs),
		CostUSD:         result.Usage.CostUSD,
	}
	if err := s.store.SaveListing(stored); err != nil {
		logger.Warn().Err(err).Str("listingID", listingID).Msg("failed to save listing to history")
		s.journal.Error(listingID, "save listing: %v", err)
	}

	s.sessions.PutResult(listingID, &session.ResultView{
		ID:        listingID,
		CreatedAt: stored.CreatedAt,
		Data:      data,
		Result:    *result,
		Images:    imgs,
	})
	s.sessions.Delete(d.ID)
	s.journal.Internal(listingID, "result stored, draft %s closed", d.ID)

	http.Redirect(w, r, "/listings/"+listingID, http.StatusSeeOther)
}

func (s *Server) handleListing(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if view, ok := s.sessions.Result(id); ok {
		s.render(w, r, http.StatusOK, "result", ViewResult, resultPage{
			ID:         view.ID,
			CreatedAt:  view.CreatedAt,
			Data:       view.Data,
			Result:     view.Result,
			Previews:   view.Previews(),
			ImageCount: len(view.Images),
		})
		return
	}

	stored, err := s.store.GetListing(id)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("listingID", id).Msg("failed to load listing")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if stored == nil {
		http.Error(w, msgListingNotFound, http.StatusNotFound)
		return
	}
	s.render(w, r, http.StatusOK, "result", ViewResult, resultPage{
		ID:        stored.ID,
		CreatedAt: stored.CreatedAt,
		Data:      stored.Data,
		Result: listing.GenerationResult{
			Description:     stored.Description,
			PriceSuggestion: stored.PriceSuggestion,
			Sources:         stored.Sources,
			Usage:           listing.Usage{CostUSD: stored.CostUSD},
		},
		ImageCount: stored.ImageCount,
	})
}

func (s *Server) handleDeleteListing(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.DeleteListing(id); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("listingID", id).Msg("failed to delete listing")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	s.sessions.DeleteResult(id)
	http.Redirect(w, r, ViewHistory.Path(), http.StatusSeeOther)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	listings, err := s.store.RecentListings(s.historyLimit)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to load history")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	s.render(w, r, http.StatusOK, "history", ViewHistory, listings)
}

func (s *Server) handleAcademy(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "academy", ViewAcademy, academy.Library())
}

// draft loads the draft named in the path. Unknown or expired drafts
// redirect to a fresh form.
func (s *Server) draft(w http.ResponseWriter, r *http.Request) (*session.Draft, bool) {
	d, err := s.sessions.Get(r.PathValue("draft"))
	if err != nil {
		http.Redirect(w, r, ViewGenerator.Path(), http.StatusSeeOther)
		return nil, false
	}
	return d, true
}

func (s *Server) parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxRequestBytes)
	err := r.ParseMultipartForm(multipartMemory)
	if errors.Is(err, http.ErrNotMultipart) {
		err = r.ParseForm()
	}
	var maxBytesErr *http.MaxBytesError
	if err != nil && !errors.As(err, &maxBytesErr) {
		return fmt.Errorf("%w: %w", errBadForm, err)
	}
	return err
}

// updateDraftData copies the typed form values into the draft. An invalid
// room count keeps the previous value and is returned.
func (s *Server) updateDraftData(r *http.Request, d *session.Draft) error {
	data := listing.ListingData{
		Address:      r.FormValue("address"),
		PropertyType: r.FormValue("propertyType"),
		Rooms:        d.Data().Rooms,
		Price:        r.FormValue("price"),
		Tone:         r.FormValue("tone"),
	}
	rooms, err := listing.ParseRooms(r.FormValue("rooms"))
	if err == nil {
		data.Rooms = rooms
	}
	d.SetData(data.Normalize())
	return err
}

func (s *Server) attachImages(r *http.Request, d *session.Draft) error {
	imgs, err := s.collectImages(r.Context(), r)
	if err != nil {
		return err
	}
	if len(imgs) == 0 {
		return nil
	}
	if err := d.AddImages(imgs...); err != nil {
		return err
	}
	zerolog.Ctx(r.Context()).Info().Str("draftID", d.ID).Int("added", len(imgs)).Int("total", d.ImageCount()).Msg("images attached")
	return nil
}

// collectImages reads the uploaded files and downloads the pasted URLs.
func (s *Server) collectImages(ctx context.Context, r *http.Request) ([]images.Image, error) {
	var imgs []images.Image
	if r.MultipartForm != nil {
		for _, fh := range r.MultipartForm.File["images"] {
			if fh.Filename == "" && fh.Size == 0 {
				continue
			}
			img, err := images.FromMultipart(fh, s.maxImageBytes)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", fh.Filename, err)
			}
			imgs = append(imgs, img)
		}
	}

	if urls := images.ParseURLList(r.FormValue("image_urls")); len(urls) > 0 {
		downloaded, err := s.downloader.DownloadAll(ctx, urls)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errDownload, err)
		}
		imgs = append(imgs, downloaded...)
	}
	return imgs, nil
}

func (s *Server) renderGenerator(w http.ResponseWriter, r *http.Request, status int, d *session.Draft, imageURLs string, err error) {
	p := generatorPage{
		DraftID:       d.ID,
		Data:          d.Data(),
		PropertyTypes: listing.PropertyTypes,
		Tones:         listing.Tones,
		Previews:      d.Previews(),
		MaxImages:     d.MaxImages(),
		ImageURLs:     imageURLs,
	}
	if err != nil {
		p.Error = s.userMessage(err)
		var ve *listing.ValidationError
		if errors.As(err, &ve) {
			p.ErrorField = ve.Field
		}
	}
	s.render(w, r, status, "generator", ViewGenerator, p)
}

// userMessage turns err into the text shown on the form.
func (s *Server) userMessage(err error) string {
	var ve *listing.ValidationError
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.As(err, &ve):
		return ve.Message
	case errors.Is(err, llm.ErrNoImages):
		return msgNoImages
	case errors.Is(err, session.ErrTooManyImages):
		return fmt.Sprintf(msgTooManyImagesFmt, s.maxImages)
	case errors.Is(err, images.ErrTooLarge):
		return msgImageTooLarge
	case errors.Is(err, images.ErrInvalidContentType), errors.Is(err, images.ErrEmpty):
		return msgInvalidImage
	case errors.Is(err, errDownload):
		return msgDownloadFailed
	case errors.As(err, &maxBytesErr):
		return msgRequestTooLarge
	case errors.Is(err, errBadForm):
		return msgBadForm
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return msgUnexpected
}

func statusFor(err error) int {
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytesErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errBadForm):
		return http.StatusBadRequest
	case listing.IsValidationError(err),
		errors.Is(err, llm.ErrNoImages),
		errors.Is(err, session.ErrTooManyImages),
		errors.Is(err, images.ErrTooLarge),
		errors.Is(err, images.ErrInvalidContentType),
		errors.Is(err, images.ErrEmpty),
		errors.Is(err, errDownload):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusBadGateway
}
