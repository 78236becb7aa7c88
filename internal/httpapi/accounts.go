package httpapi

import (
	"net/http"

	"github.com/datevrec/datevrec/internal/dictionary"
)

type accountsResponse struct {
	Accounts []dictionary.AccountDef `json:"accounts"`
}

// listAccounts serves the curated chart-of-accounts labels.
func (s *Server) listAccounts(w http.ResponseWriter, r *http.Request) {
	toJSON(w, http.StatusOK, accountsResponse{Accounts: dictionary.Accounts()})
}
