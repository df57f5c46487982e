// Package http mounts the posts endpoints
package http

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	perr "timeline/internal/platform/errors"
	phttp "timeline/internal/platform/net/http"
	"timeline/internal/platform/net/http/bind"
	"timeline/internal/services/posts/domain"
)

// audio bodies are base64 inside JSON
const maxAudioBody = domain.MaxAudioBytes*4/3 + 4096

// Register mounts the posts routes on r
func Register(r phttp.Router, svc domain.ServicePort) {
	phttp.GetJSON(r, "/posts", func(req *http.Request) (any, error) {
		q := domain.ListQuery{}
		if s := req.URL.Query().Get("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil {
				return nil, perr.WithField(perr.InvalidArgf("limit must be an integer"), "limit")
			}
			q.Limit = n
		}
		return svc.Posts(req.Context(), q)
	})

	phttp.CreateJSON(r, "/posts", func(req *http.Request, in domain.CreatePostInput) (any, error) {
		return svc.CreatePost(req.Context(), in)
	})

	phttp.GetJSON(r, "/posts/{id}", func(req *http.Request) (any, error) {
		id, err := pathID(req, "id")
		if err != nil {
			return nil, err
		}
		return svc.Post(req.Context(), id)
	})

	phttp.CreateJSON(r, "/posts/{id}/comments", func(req *http.Request, in domain.AddCommentInput) (any, error) {
		id, err := pathID(req, "id")
		if err != nil {
			return nil, err
		}
		return svc.AddComment(req.Context(), id, in)
	})

	r.Post("/posts/{id}/audio-comments", phttp.Handle(func(req *http.Request) phttp.Response {
		id, err := pathID(req, "id")
		if err != nil {
			return phttp.Error(err)
		}
		in, err := bind.ParseJSON[domain.AddAudioCommentInput](req, bind.JSONOptions{MaxBytes: maxAudioBody, DisallowUnknown: true})
		if err != nil {
			return phttp.Error(err)
		}
		c, err := svc.AddAudioComment(req.Context(), id, in)
		if err != nil {
			return phttp.Error(err)
		}
		return phttp.Created(c)
	}))

	r.Get("/media/audio/{commentID}", func(w http.ResponseWriter, req *http.Request) {
		id, err := pathID(req, "commentID")
		if err != nil {
			phttp.RespondError(w, req, err)
			return
		}
		b, err := svc.AudioBlob(req.Context(), id)
		if err != nil {
			phttp.RespondError(w, req, err)
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		phttp.RespondBytes(w, b.ContentType, b.Data)
	})
}

func pathID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(phttp.URLParam(r, name))
	if err != nil {
		return uuid.Nil, perr.WithField(perr.InvalidArgf("%s must be a uuid", name), name)
	}
	return id, nil
}
