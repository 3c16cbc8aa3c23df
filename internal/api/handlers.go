package api

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"blendguard/internal/alert"
	"blendguard/internal/bot"
	"blendguard/internal/core"
	"blendguard/internal/position"
	"blendguard/internal/protection"
	apperrors "blendguard/pkg/errors"
	"blendguard/pkg/telemetry"
)

const maxBodyBytes = 1 << 20

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{
		"status":  "healthy",
		"service": serviceName,
	}
	status := http.StatusOK

	// last served figures for tracked positions
	m := telemetry.GetGlobalMetrics()
	ltvs := m.GetLTVs()
	positions := make(map[string]map[string]float64)
	for id, hf := range m.GetHealthFactors() {
		positions[id] = map[string]float64{"health_factor": hf, "ltv": ltvs[id]}
	}
	body["positions"] = positions

	if hm := s.opts.Health; hm != nil {
		components := hm.GetStatus()
		body["components"] = components
		for _, c := range components {
			if c != core.ComponentHealthy {
				body["status"] = "unhealthy"
				status = http.StatusServiceUnavailable
				break
			}
		}
	}
	writeJSON(w, status, body)
}

func (s *Server) handlePosition(w http.ResponseWriter, r *http.Request) {
	p, err := s.opts.Positions.Fetch(r.Context(), r.PathValue("id"))
	if err != nil {
		s.logger.Error("Failed to load position", "position_id", r.PathValue("id"), "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load position")
		return
	}
	telemetry.GetGlobalMetrics().ObservePosition(r.Context(), p.ID, p.HealthFactor.InexactFloat64(), p.LTV.InexactFloat64())
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDetails(w http.ResponseWriter, r *http.Request) {
	p, err := s.opts.Positions.Fetch(r.Context(), r.PathValue("id"))
	if err != nil {
		s.logger.Error("Failed to load position", "position_id", r.PathValue("id"), "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load position")
		return
	}
	writeJSON(w, http.StatusOK, position.Details{
		Position:         p,
		LiquidationPrice: position.GetDetails(p.ID).LiquidationPrice,
	})
}

func (s *Server) handleUserPositions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, position.GetUserPositions(r.PathValue("userID")))
}

func (s *Server) handleReceipts(w http.ResponseWriter, r *http.Request) {
	receipts, err := s.opts.Vault.Receipts(r.Context(), r.PathValue("id"))
	if err != nil {
		s.logger.Error("Failed to list receipts", "position_id", r.PathValue("id"), "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list receipts")
		return
	}
	if receipts == nil {
		receipts = []*protection.Receipt{}
	}
	writeJSON(w, http.StatusOK, receipts)
}

func (s *Server) handleVault(w http.ResponseWriter, r *http.Request) {
	info := s.opts.Vault.Info()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"contract_id": info.ContractID,
		"version":     info.Version,
		"network":     info.Network,
		"status":      info.Status,
		"info":        s.opts.Vault.Describe(),
	})
}

func (s *Server) handleProtectLink(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	pos, user := q.Get("pos"), q.Get("user")
	if pos == "" || user == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	link, err := s.opts.Signer.Generate(pos, user)
	if err != nil {
		telemetry.GetGlobalMetrics().RecordDeeplinkFailure(r.Context())
		s.logger.Error("Failed to generate deeplink", "position_id", pos, "error", err)
		if errors.Is(err, apperrors.ErrNotConfigured) {
			writeError(w, http.StatusServiceUnavailable, "Deeplink signing is not configured")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to generate deeplink")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deeplink": link})
}

func (s *Server) handleProtectVerify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	valid := s.opts.Signer.Verify(q.Get("pos"), q.Get("user"), q.Get("sig"))
	writeJSON(w, http.StatusOK, map[string]bool{"valid": valid})
}

type protectRequest struct {
	UserID     string              `json:"userId"`
	PositionID string              `json:"positionId"`
	Signature  string              `json:"sig"`
	Actions    []protection.Action `json:"actions"`
}

func (s *Server) handleProtect(w http.ResponseWriter, r *http.Request) {
	var req protectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// With signing configured every request must carry the deeplink's signature
	if s.opts.Signer.Enabled() {
		if req.Signature == "" {
			writeError(w, http.StatusUnauthorized, "Missing signature")
			return
		}
		if !s.opts.Signer.Verify(req.PositionID, req.UserID, req.Signature) {
			writeError(w, http.StatusUnauthorized, "Invalid signature")
			return
		}
	}

	res, err := s.opts.Vault.Execute(r.Context(), req.UserID, req.PositionID, req.Actions)
	if err != nil {
		status := protectionStatus(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error("Protection failed", "position_id", req.PositionID, "error", err)
		}
		writeJSON(w, status, map[string]interface{}{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	if res.Receipt != nil {
		executed := make([]alert.ExecutedAction, 0, len(res.Receipt.Actions))
		for _, a := range res.Receipt.Actions {
			executed = append(executed, alert.ExecutedAction{Type: string(a.Type), Amount: a.Amount, AssetID: a.Address})
		}
		s.opts.Alerts.Dispatch(r.Context(), alert.ProtectionComplete(req.UserID, res.Position.ID, res.Receipt.TxHash, executed))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"position": res.Position,
		"receipt":  res.Receipt,
	})
}

type notifyRequest struct {
	UserID     string                 `json:"userId"`
	PositionID string                 `json:"positionId"`
	TxHash     string                 `json:"txHash"`
	Message    string                 `json:"message"`
	Actions    []alert.ExecutedAction `json:"actions"`
}

func (r notifyRequest) validate() error {
	if r.UserID == "" || r.PositionID == "" || r.TxHash == "" || r.Message == "" {
		return apperrors.ErrMissingFields
	}
	return nil
}

func (s *Server) handleNotifyTelegram(w http.ResponseWriter, r *http.Request) {
	var req notifyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	s.logger.Info("Received notification request", "user_id", req.UserID, "position_id", req.PositionID)
	s.opts.Alerts.Dispatch(r.Context(), alert.ProtectionComplete(req.UserID, req.PositionID, req.TxHash, req.Actions))

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Notification sent successfully",
		"tx_hash": req.TxHash,
	})
}

func (s *Server) handleTelegramWebhook(w http.ResponseWriter, r *http.Request) {
	if s.opts.WebhookSecret != "" && !secretMatches(r.Header.Get("X-Telegram-Bot-Api-Secret-Token"), s.opts.WebhookSecret) {
		writeError(w, http.StatusUnauthorized, "Invalid webhook secret")
		return
	}

	var update bot.Update
	if err := decodeJSON(r, &update); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Telegram redelivers on non-2xx, so handler failures are logged and acknowledged
	if err := s.opts.Bot.HandleUpdate(r.Context(), update); err != nil {
		s.logger.Warn("Failed to handle update", "update_id", update.UpdateID, "error", err)
	}
	w.WriteHeader(http.StatusOK)
}

func secretMatches(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

func protectionStatus(err error) int {
	switch {
	case errors.Is(err, protection.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, protection.ErrInvalidAction):
		return http.StatusBadRequest
	case errors.Is(err, protection.ErrNotAtRisk):
		return http.StatusConflict
	case errors.Is(err, protection.ErrPoolNotFound):
		return http.StatusNotFound
	case errors.Is(err, protection.ErrInsufficientBalance), errors.Is(err, protection.ErrInsuranceClaimFailed):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is empty", apperrors.ErrInvalidRequest)
		}
		return fmt.Errorf("%w: %s", apperrors.ErrInvalidRequest, strings.TrimPrefix(err.Error(), "json: "))
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
