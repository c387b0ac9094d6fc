package api

import (
	"net/http"

	"github.com/eleven-am/foodgram/internal/models"
)

func (s *Server) listTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.svc.ListTags(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

func (s *Server) getTag(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	tag, err := s.svc.GetTag(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tag)
}

func (s *Server) createTag(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var in models.Tag
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	tag, err := s.svc.CreateTag(r.Context(), user, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tag)
}

func (s *Server) listIngredients(w http.ResponseWriter, r *http.Request) {
	ingredients, err := s.svc.SearchIngredients(r.Context(), r.URL.Query().Get("name"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ingredients)
}

func (s *Server) getIngredient(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	ingredient, err := s.svc.GetIngredient(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ingredient)
}

func (s *Server) createIngredient(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var in models.Ingredient
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	ingredient, err := s.svc.CreateIngredient(r.Context(), user, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ingredient)
}
