package fakebackend

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const contentTypeJSON = "application/json; charset=utf-8"

type ctxKey int

const accountKey ctxKey = iota

// envelope is the backend's uniform response body.
type envelope struct {
	Success      bool   `json:"success"`
	Message      string `json:"message,omitempty"`
	ErrorCode    string `json:"errorCode,omitempty"`
	ResponseData any    `json:"responseData,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Err(err).Msg("Failed to encode response")
	}
}

func fail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Success: false, Message: message})
}

func (b *Backend) recordMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, cookieErr := r.Cookie(RefreshCookieName)
		b.mu.Lock()
		b.requests = append(b.requests, RecordedRequest{
			Method:        r.Method,
			Path:          r.URL.Path,
			Authorization: r.Header.Get("Authorization"),
			HasCookie:     cookieErr == nil,
			RequestID:     r.Header.Get("X-Request-ID"),
		})
		hold := b.holds[r.URL.Path]
		b.mu.Unlock()

		if hold != nil {
			select {
			case <-hold:
			case <-r.Context().Done():
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) delayMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if b.delay > 0 {
			select {
			case <-time.After(b.delay):
			case <-r.Context().Done():
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) bearerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			fail(w, http.StatusUnauthorized, "Authorization header missing")
			return
		}
		claims, err := verifyToken(b.secret, raw)
		if err != nil {
			fail(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		if tokenType, _ := claims["token_type"].(string); tokenType != "access" {
			fail(w, http.StatusForbidden, "Token not permitted for this resource")
			return
		}
		sub, _ := claims["sub"].(string)
		acc, err := b.accounts.getByID(sub)
		if err != nil {
			fail(w, http.StatusUnauthorized, "User not found")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), accountKey, acc)))
	})
}

func (b *Backend) verifyCredentials(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	acc, err := b.accounts.getByEmail(req.Email)
	if err != nil || !acc.checkPassword(req.Password) {
		fail(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	mfaSessionID := uuid.New().String()
	b.mu.Lock()
	b.mfa[mfaSessionID] = acc.profile.ID
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, envelope{
		Success:      true,
		Message:      "OTP sent to registered email",
		ResponseData: map[string]string{"mfaSessionId": mfaSessionID},
	})
}

func (b *Backend) verifyOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MFASessionID string `json:"mfaSessionId"`
		OTP          string `json:"otp"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	b.mu.Lock()
	userID, ok := b.mfa[req.MFASessionID]
	if ok && req.OTP == b.otp {
		delete(b.mfa, req.MFASessionID)
	}
	b.mu.Unlock()
	if !ok {
		fail(w, http.StatusBadRequest, "MFA session not found or expired")
		return
	}
	if req.OTP != b.otp {
		fail(w, http.StatusUnauthorized, "Invalid OTP")
		return
	}

	acc, err := b.accounts.getByID(userID)
	if err != nil {
		fail(w, http.StatusUnauthorized, "User not found")
		return
	}
	accessToken, err := b.issueAccessToken(acc.profile)
	if err != nil {
		fail(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}

	http.SetCookie(w, b.newRefreshCookie(userID))
	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Message: "Login successful",
		ResponseData: map[string]any{
			"accessToken":           accessToken,
			"user":                  acc.profile,
			"roleSelectionRequired": acc.profile.Role == "" && len(acc.profile.Roles) > 1,
		},
	})
}

func (b *Backend) resendOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MFASessionID string `json:"mfaSessionId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	b.mu.Lock()
	_, ok := b.mfa[req.MFASessionID]
	b.mu.Unlock()
	if !ok {
		fail(w, http.StatusBadRequest, "MFA session not found or expired")
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "OTP resent"})
}

func (b *Backend) refreshToken(w http.ResponseWriter, r *http.Request) {
	b.refreshCalls.Add(1)
	if b.failRefresh.Load() {
		fail(w, http.StatusUnauthorized, "Refresh token expired")
		return
	}

	cookie, err := r.Cookie(RefreshCookieName)
	if err != nil {
		fail(w, http.StatusUnauthorized, "Refresh token missing")
		return
	}
	b.mu.Lock()
	sess, ok := b.sessions[cookie.Value]
	b.mu.Unlock()
	if !ok || !b.nowFunc().Before(sess.expiresAt) {
		fail(w, http.StatusUnauthorized, "Refresh token invalid or expired")
		return
	}

	acc, err := b.accounts.getByID(sess.userID)
	if err != nil {
		fail(w, http.StatusUnauthorized, "User not found")
		return
	}
	accessToken, err := b.issueAccessToken(acc.profile)
	if err != nil {
		fail(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		ResponseData: map[string]any{
			"accessToken": accessToken,
			"user":        acc.profile,
		},
	})
}

func (b *Backend) logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(RefreshCookieName); err == nil {
		b.mu.Lock()
		delete(b.sessions, cookie.Value)
		b.mu.Unlock()
	}
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "Logged out"})
}

func (b *Backend) userMe(w http.ResponseWriter, r *http.Request) {
	acc := r.Context().Value(accountKey).(*account)
	writeJSON(w, http.StatusOK, envelope{Success: true, ResponseData: acc.profile})
}

var inviteStatusCodes = map[string]int{
	CodeInvalidToken:     http.StatusBadRequest,
	CodeExpired:          http.StatusGone,
	CodeAlreadySubmitted: http.StatusConflict,
	CodeDisabled:         http.StatusForbidden,
}

func (b *Backend) verifyInvite(kind InviteKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		inv, code := b.lookupInvite(token, kind)
		if code != "" {
			body := envelope{Success: false, Message: legacyMessages[code], ErrorCode: code}
			if inv != nil && inv.Legacy {
				body.ErrorCode = ""
			}
			writeJSON(w, inviteStatusCodes[code], body)
			return
		}
		writeJSON(w, http.StatusOK, envelope{
			Success: true,
			ResponseData: map[string]any{
				"ableToFillForm": true,
				"candidateId":    inv.CandidateID,
			},
		})
	}
}

func (b *Backend) getFile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "fileId")
	b.mu.Lock()
	f, ok := b.files[id]
	b.mu.Unlock()
	if !ok {
		fail(w, http.StatusNotFound, "File not found")
		return
	}
	w.Header().Set("Content-Type", f.contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(f.data)
}
