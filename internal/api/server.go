// Package api exposes the chat core over JSON HTTP. Handlers stay thin:
// decode, call the service, map the error taxonomy onto status codes.
package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"bakchod/internal/call"
	"bakchod/internal/chat"
	"bakchod/internal/contacts"
	"bakchod/internal/identity"
	"bakchod/internal/invites"
	"bakchod/internal/media"
	"bakchod/internal/presence"
	"bakchod/internal/roast"
	"bakchod/internal/visibility"
	"bakchod/pkg/logger"
)

type Server struct {
	router   *mux.Router
	chats    *chat.Service
	presence *presence.Tracker
	vis      *visibility.Service
	calls    *call.Service
	roasts   *roast.Service
	contacts *contacts.Service
	invites  *invites.Service
	blobs    media.BlobStore
	log      logger.Logger
}

type Deps struct {
	Provider *identity.Provider
	Chats    *chat.Service
	Presence *presence.Tracker
	Vis      *visibility.Service
	Calls    *call.Service
	Roasts   *roast.Service
	Contacts *contacts.Service
	Invites  *invites.Service
	Blobs    media.BlobStore
	Log      logger.Logger
}

func NewServer(d Deps) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		chats:    d.Chats,
		presence: d.Presence,
		vis:      d.Vis,
		calls:    d.Calls,
		roasts:   d.Roasts,
		contacts: d.Contacts,
		invites:  d.Invites,
		blobs:    d.Blobs,
		log:      d.Log,
	}
	s.router.Use(Logging(d.Log))
	s.setupRoutes(d.Provider)
	return s
}

func (s *Server) setupRoutes(provider *identity.Provider) {
	s.router.HandleFunc("/health", s.healthCheck).Methods("GET")

	r := s.router.PathPrefix("/").Subrouter()
	r.Use(AuthMiddleware(provider))

	r.HandleFunc("/chats/direct", s.getOrCreateDirect).Methods("POST")
	r.HandleFunc("/chats/group", s.createGroup).Methods("POST")
	r.HandleFunc("/chats/{chatId}", s.getChat).Methods("GET")
	r.HandleFunc("/chats/{chatId}/messages", s.history).Methods("GET")
	r.HandleFunc("/chats/{chatId}/messages", s.appendMessage).Methods("POST")
	r.HandleFunc("/chats/{chatId}/messages/{messageId}", s.deleteForEveryone).Methods("DELETE")
	r.HandleFunc("/chats/{chatId}/messages/{messageId}/reaction", s.setReaction).Methods("PUT")
	r.HandleFunc("/chats/{chatId}/messages/{messageId}/hide", s.deleteForMe).Methods("POST")
	r.HandleFunc("/chats/{chatId}/read", s.markRead).Methods("POST")
	r.HandleFunc("/chats/{chatId}/typing", s.setTyping).Methods("POST")
	r.HandleFunc("/chats/{chatId}/clear", s.clearForMe).Methods("POST")
	r.HandleFunc("/chats/{chatId}/mute", s.setMuted).Methods("PUT")
	r.HandleFunc("/chats/{chatId}/members", s.addMembers).Methods("POST")
	r.HandleFunc("/chats/{chatId}/members/{userId}", s.removeMember).Methods("DELETE")
	r.HandleFunc("/chats/{chatId}/admins/{userId}", s.setAdmin).Methods("PUT")
	r.HandleFunc("/chats/{chatId}/roast", s.roastChat).Methods("POST")
	r.HandleFunc("/chats/{chatId}/media", s.uploadMedia).Methods("POST")

	r.HandleFunc("/calls", s.createCall).Methods("POST")
	r.HandleFunc("/calls/{callId}", s.getCall).Methods("GET")
	r.HandleFunc("/calls/{callId}/status", s.updateCallStatus).Methods("PUT")

	r.HandleFunc("/contacts/import", s.importContacts).Methods("POST")
	r.HandleFunc("/contacts", s.listContacts).Methods("GET")
	r.HandleFunc("/contacts/refresh", s.refreshContacts).Methods("POST")

	r.HandleFunc("/invites", s.createInvite).Methods("POST")
	r.HandleFunc("/invites", s.listInvites).Methods("GET")
	r.HandleFunc("/invites/{inviteId}/decision", s.decideInvite).Methods("POST")
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) Run(addr string) error {
	s.log.Info("starting http server", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

func (s *Server) healthCheck(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
