package api

import (
	"net/http"

	"github.com/eleven-am/foodgram/internal/kitchen"
)

type passwordChange struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type verifiedUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := s.svc.ListUsers(r.Context(), requester(r), page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPaginated(r, result.Count, result.Page, result.Results))
}

func (s *Server) registerUser(w http.ResponseWriter, r *http.Request) {
	var in kitchen.UserInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	profile, err := s.svc.RegisterUser(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, profile)
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	profile, err := s.svc.GetUser(r.Context(), user, &user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	profile, err := s.svc.GetUser(r.Context(), id, requester(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) setPassword(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var in passwordChange
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.svc.ChangePassword(r.Context(), user, in.CurrentPassword, in.NewPassword); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// verifyCredentials lets the gateway exchange an email and password for the
// identity it forwards in UserHeader.
func (s *Server) verifyCredentials(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := s.svc.Authenticate(r.Context(), in.Email, in.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, verifiedUser{ID: user.ID, Username: user.Username, IsAdmin: user.IsAdmin})
}

func (s *Server) listSubscriptions(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	page, err := pageFromQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	recipesLimit, err := queryInt(r, "recipes_limit")
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := s.svc.ListSubscriptions(r.Context(), user, page, recipesLimit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPaginated(r, result.Count, result.Page, result.Results))
}

func (s *Server) subscribe(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	author, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	if r.Method == http.MethodDelete {
		if err := s.svc.RemoveRelation(r.Context(), kitchen.Subscription, user, author); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if _, err := s.svc.AddRelation(r.Context(), kitchen.Subscription, user, author); err != nil {
		writeError(w, r, err)
		return
	}
	profile, err := s.svc.GetUser(r.Context(), author, &user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, profile)
}
