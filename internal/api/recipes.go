package api

import (
	"net/http"
	"strconv"

	"github.com/eleven-am/foodgram/internal/kitchen"
)

// ShoppingListFilename is the attachment name of the shopping list download
const ShoppingListFilename = "shopping_list.txt"

func (s *Server) listRecipes(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := kitchen.RecipeFilter{
		Tags:             query["tags"],
		IsFavorited:      queryBool(r, "is_favorited"),
		IsInShoppingCart: queryBool(r, "is_in_shopping_cart"),
	}

	if raw := query.Get("author"); raw != "" {
		author, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "author must be an integer")
			return
		}
		filter.AuthorID = &author
	}

	page, err := pageFromQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	// The cart view lists every recipe in the cart on one page.
	if query.Has("is_in_shopping_cart") {
		page.Unpaged = true
	}

	result, err := s.svc.FilterRecipes(r.Context(), filter, requester(r), page)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newPaginated(r, result.Count, result.Page, result.Results))
}

func (s *Server) createRecipe(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var in kitchen.RecipeInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	recipe, err := s.svc.CreateRecipe(r.Context(), user, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, recipe)
}

func (s *Server) getRecipe(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	recipe, err := s.svc.GetRecipe(r.Context(), id, requester(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recipe)
}

func (s *Server) updateRecipe(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var in kitchen.RecipeInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	recipe, err := s.svc.UpdateRecipe(r.Context(), id, user, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recipe)
}

func (s *Server) deleteRecipe(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.svc.DeleteRecipe(r.Context(), id, user); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// recipeRelation serves POST and DELETE for the favorite and shopping_cart
// sub-resources. POST answers with the short recipe form.
func (s *Server) recipeRelation(kind kitchen.RelationKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := requireUser(w, r)
		if !ok {
			return
		}
		id, err := pathID(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}

		if r.Method == http.MethodDelete {
			if err := s.svc.RemoveRelation(r.Context(), kind, user, id); err != nil {
				writeError(w, r, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}

		if _, err := s.svc.AddRelation(r.Context(), kind, user, id); err != nil {
			writeError(w, r, err)
			return
		}
		summary, err := s.svc.GetRecipeSummary(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, summary)
	}
}

func (s *Server) downloadShoppingCart(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	items, err := s.svc.AggregateShoppingList(r.Context(), user)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename="+ShoppingListFilename)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(kitchen.FormatShoppingList(items)))
}
