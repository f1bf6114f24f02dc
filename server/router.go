package server

import (
	"net/http"

	"outbreak/server/domain"
	"outbreak/server/handler"
)

func Route(dispatcher domain.Dispatcher, verifier handler.TokenVerifier, opts domain.EndpointOptions) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/ws", handler.NewAcceptHandler(dispatcher, verifier, opts))
	mux.Handle("/healthz", handler.NewHealthHandler())
	return mux
}
