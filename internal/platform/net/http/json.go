package http

import (
	"net/http"

	"timeline/internal/platform/net/http/bind"
)

// JSONHandler adapts a pure JSON handler to a platform Handler; success is 200
func JSONHandler[T any](fn func(*http.Request, T) (any, error)) Handler {
	return jsonHandler(http.StatusOK, fn)
}

// JSONCreateHandler is JSONHandler answering 201 on success
func JSONCreateHandler[T any](fn func(*http.Request, T) (any, error)) Handler {
	return jsonHandler(http.StatusCreated, fn)
}

func jsonHandler[T any](status int, fn func(*http.Request, T) (any, error)) Handler {
	return Handle(func(r *http.Request) Response {
		in, err := bind.ParseJSON[T](r)
		if err != nil {
			return Error(err)
		}
		out, err := fn(r, in)
		if err != nil {
			return Error(err)
		}
		return Response{Status: status, Body: out}
	})
}

// JSONHandlerNoBody calls fn without parsing a request body and wraps the result
func JSONHandlerNoBody(fn func(*http.Request) (any, error)) Handler {
	return Handle(func(r *http.Request) Response {
		out, err := fn(r)
		if err != nil {
			return Error(err)
		}
		return OK(out)
	})
}
