package mockapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) onLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "invalid request body"})
		return
	}
	if req.Username == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "username and password required"})
		return
	}
	if req.Username != s.username || bcrypt.CompareHashAndPassword(s.passwordHash, []byte(req.Password)) != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "Invalid credentials"})
		return
	}

	s.mu.Lock()
	token := s.issueLocked()
	refresh := ""
	if s.RotateRefresh {
		refresh = s.newRefreshLocked()
	}
	s.mu.Unlock()

	if refresh != "" {
		http.SetCookie(w, &http.Cookie{Name: "refreshToken", Value: refresh, Path: "/", HttpOnly: true})
	}
	writeJSON(w, http.StatusOK, map[string]any{"accessToken": token})
}

func (s *Server) onRefresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie("refreshToken")
	if err != nil || cookie.Value == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "missing refresh token"})
		return
	}

	s.mu.Lock()
	if !s.refreshTokens[cookie.Value] {
		s.mu.Unlock()
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "unknown refresh token"})
		return
	}
	if s.RefreshOmitsToken {
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{})
		return
	}
	token := s.issueLocked()
	rotated := ""
	if s.RotateRefresh {
		delete(s.refreshTokens, cookie.Value)
		rotated = s.newRefreshLocked()
	}
	s.mu.Unlock()

	if rotated != "" {
		http.SetCookie(w, &http.Cookie{Name: "refreshToken", Value: rotated, Path: "/", HttpOnly: true})
	}
	writeJSON(w, http.StatusOK, map[string]any{"accessToken": token})
}

func (s *Server) onAccount(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"accountId": 1001,
		"username":  s.username,
		"currency":  "USDT",
	})
}

func (s *Server) onAnalyzer(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("X-Exchange-Type") == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "X-Exchange-Type header required"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"openBetween": r.URL.Query().Get("openBetween"),
		"totalTrades": 42,
		"winRate":     0.57,
		"pnl":         1234.5,
	})
}

func (s *Server) onExchanges(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	activeOnly := q.Get("active_only") == "true"
	withStats := q.Get("with_stats") == "true"

	var out []map[string]any
	for _, ex := range exchanges {
		if activeOnly && !ex.Active {
			continue
		}
		item := map[string]any{"id": ex.ID, "name": ex.Name, "active": ex.Active}
		if withStats {
			item["stats"] = ex.stats()
		}
		out = append(out, item)
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": out, "total": len(out)})
}

func (s *Server) onExchangeSymbols(w http.ResponseWriter, r *http.Request) {
	ex, ok := findExchange(mux.Vars(r)["id"])
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "exchange not found"})
		return
	}
	activeOnly := r.URL.Query().Get("active_only") == "true"
	var out []map[string]any
	for _, sym := range ex.Symbols {
		if activeOnly && !sym.Active {
			continue
		}
		out = append(out, map[string]any{"symbol": sym.Name, "active": sym.Active})
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": out, "total": len(out)})
}

func (s *Server) onExchangeStats(w http.ResponseWriter, r *http.Request) {
	ex, ok := findExchange(mux.Vars(r)["id"])
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "exchange not found"})
		return
	}
	writeJSON(w, http.StatusOK, ex.stats())
}

func (s *Server) onUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := atoiDefault(q.Get("page"), 1)
	perPage := atoiDefault(q.Get("items_per_page"), 20)

	var matched []user
	for _, u := range users {
		if role := q.Get("role"); role != "" && u.Role != role {
			continue
		}
		if status := q.Get("status"); status != "" && u.Status != status {
			continue
		}
		if search := q.Get("search"); search != "" && !strings.Contains(u.Username, search) {
			continue
		}
		matched = append(matched, u)
	}

	start := (page - 1) * perPage
	if start > len(matched) {
		start = len(matched)
	}
	end := start + perPage
	if end > len(matched) {
		end = len(matched)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data":           matched[start:end],
		"page":           page,
		"items_per_page": perPage,
		"total":          len(matched),
	})
}

func (s *Server) onCurrentUser(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, users[0])
}

func (s *Server) onUserStats(w http.ResponseWriter, r *http.Request) {
	id := users[0].ID
	if raw, ok := mux.Vars(r)["id"]; ok {
		id = atoiDefault(raw, 0)
	}
	period := r.URL.Query().Get("period")
	if period == "" {
		period = "month"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id": id,
		"period":  period,
		"trades":  17,
		"volume":  "98765.43",
	})
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
