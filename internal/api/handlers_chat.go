package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"bakchod/internal/chat"
	"bakchod/internal/media"
	"bakchod/internal/visibility"
	"bakchod/pkg/apperr"
)

func (s *Server) getOrCreateDirect(w http.ResponseWriter, r *http.Request) {
	var input struct {
		DisplayName     string `json:"displayName"`
		PeerID          string `json:"peerId"`
		PeerDisplayName string `json:"peerDisplayName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, apperr.InvalidArg("invalid request body"))
		return
	}
	c, err := s.chats.GetOrCreateDirect(r.Context(),
		chat.Participant{ID: UserID(r), DisplayName: input.DisplayName},
		chat.Participant{ID: input.PeerID, DisplayName: input.PeerDisplayName},
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) createGroup(w http.ResponseWriter, r *http.Request) {
	var input struct {
		DisplayName string             `json:"displayName"`
		Name        string             `json:"name"`
		Members     []chat.Participant `json:"members"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, apperr.InvalidArg("invalid request body"))
		return
	}
	c, err := s.chats.CreateGroup(r.Context(),
		chat.Participant{ID: UserID(r), DisplayName: input.DisplayName},
		input.Name, input.Members)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) getChat(w http.ResponseWriter, r *http.Request) {
	c, err := s.chats.Get(r.Context(), mux.Vars(r)["chatId"])
	if err != nil {
		writeError(w, err)
		return
	}
	if !c.HasParticipant(UserID(r)) {
		writeError(w, apperr.Forbidden("not a participant of this chat"))
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) history(w http.ResponseWriter, r *http.Request) {
	chatID := mux.Vars(r)["chatId"]
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	msgs, err := s.chats.History(r.Context(), chatID, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	st, err := s.vis.Get(r.Context(), UserID(r), chatID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": visibility.Filter(msgs, st)})
}

func (s *Server) appendMessage(w http.ResponseWriter, r *http.Request) {
	var input struct {
		DisplayName string         `json:"displayName"`
		Type        string         `json:"type"`
		Content     string         `json:"content"`
		MediaURL    string         `json:"mediaUrl"`
		ReplyTo     *chat.ReplyRef `json:"replyTo"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, apperr.InvalidArg("invalid request body"))
		return
	}
	id, err := s.chats.Append(r.Context(), mux.Vars(r)["chatId"], chat.Draft{
		SenderID:          UserID(r),
		SenderDisplayName: input.DisplayName,
		Kind:              chat.MessageKind(input.Type),
		Content:           input.Content,
		MediaURL:          input.MediaURL,
		ReplyTo:           input.ReplyTo,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"messageId": id})
}

func (s *Server) deleteForEveryone(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := s.chats.DeleteForEveryone(r.Context(), vars["chatId"], vars["messageId"]); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) setReaction(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Emoji string `json:"emoji"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, apperr.InvalidArg("invalid request body"))
		return
	}
	vars := mux.Vars(r)
	if err := s.chats.SetReaction(r.Context(), vars["chatId"], vars["messageId"], UserID(r), input.Emoji); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) deleteForMe(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := s.vis.DeleteForMe(r.Context(), UserID(r), vars["chatId"], vars["messageId"]); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) markRead(w http.ResponseWriter, r *http.Request) {
	if err := s.presence.MarkRead(r.Context(), mux.Vars(r)["chatId"], UserID(r)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) setTyping(w http.ResponseWriter, r *http.Request) {
	var input struct {
		DisplayName string `json:"displayName"`
		Typing      bool   `json:"typing"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, apperr.InvalidArg("invalid request body"))
		return
	}
	chatID := mux.Vars(r)["chatId"]
	var err error
	if input.Typing {
		err = s.presence.Keystroke(r.Context(), chatID, UserID(r), input.DisplayName)
	} else {
		err = s.presence.Stop(r.Context(), chatID, UserID(r))
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) clearForMe(w http.ResponseWriter, r *http.Request) {
	if err := s.vis.ClearForMe(r.Context(), UserID(r), mux.Vars(r)["chatId"]); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) setMuted(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Muted bool `json:"muted"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, apperr.InvalidArg("invalid request body"))
		return
	}
	if err := s.vis.SetMuted(r.Context(), UserID(r), mux.Vars(r)["chatId"], input.Muted); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) addMembers(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Members []chat.Participant `json:"members"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, apperr.InvalidArg("invalid request body"))
		return
	}
	if err := s.chats.AddMembers(r.Context(), mux.Vars(r)["chatId"], UserID(r), input.Members); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) removeMember(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := s.chats.RemoveMember(r.Context(), vars["chatId"], UserID(r), vars["userId"]); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) setAdmin(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Admin bool `json:"admin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, apperr.InvalidArg("invalid request body"))
		return
	}
	vars := mux.Vars(r)
	if err := s.chats.SetAdmin(r.Context(), vars["chatId"], UserID(r), vars["userId"], input.Admin); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) roastChat(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Topic string `json:"topic"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, apperr.InvalidArg("invalid request body"))
		return
	}
	text, err := s.roasts.Roast(r.Context(), mux.Vars(r)["chatId"], input.Topic)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"content": text})
}

const maxUploadBytes = 32 << 20

func (s *Server) uploadMedia(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, apperr.InvalidArg("invalid multipart body"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, apperr.InvalidArg("file field is required"))
		return
	}
	defer file.Close()

	path, err := media.ChatMediaPath(mux.Vars(r)["chatId"], UserID(r), header.Filename)
	if err != nil {
		writeError(w, err)
		return
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	url, err := s.blobs.Upload(r.Context(), path, file, contentType)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"mediaUrl": url})
}
