package main

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"net/http"
	"time"

	"rpcsubscriptions/ledger"
	"rpcsubscriptions/pubsub"
	"rpcsubscriptions/transport"
)

// voteHashFromSlots derives a deterministic stand-in vote hash from the
// voted slots, since the demo binary has no real vote-transaction
// signer; production callers would pass the transaction's own hash.
func voteHashFromSlots(slots []uint64) [32]byte {
	buf := make([]byte, 8*len(slots))
	for i, slot := range slots {
		binary.BigEndian.PutUint64(buf[i*8:], slot)
	}
	return pubsub.VoteHash(buf)
}

// controlResponse is the demo control surface's reply envelope,
// grounded on the teacher's ControlResponse{Success,Message}
// (control_handler.go).
type controlResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Slot    uint64 `json:"slot,omitempty"`
}

func registerControlEndpoints(mux *http.ServeMux, n *node) {
	mux.HandleFunc("/control/slot/advance", handleAdvanceSlot(n))
	mux.HandleFunc("/control/slot/confirm", handleConfirmSlot(n))
	mux.HandleFunc("/control/root/set", handleSetRoot(n))
	mux.HandleFunc("/control/reorg", handleReorg(n))
	mux.HandleFunc("/control/account/set", handleSetAccount(n))
	mux.HandleFunc("/control/vote", handleVote(n))
	mux.HandleFunc("/control/connections/block", handleBlockConnections)
}

func handleBlockConnections(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonResponse(w, http.StatusMethodNotAllowed, controlResponse{Message: "method not allowed"})
		return
	}
	var req struct {
		DurationSeconds int `json:"duration_seconds"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.DurationSeconds <= 0 {
		req.DurationSeconds = 10
	}

	transport.BlockConnections(time.Duration(req.DurationSeconds) * time.Second)
	jsonResponse(w, http.StatusOK, controlResponse{Success: true, Message: "blocking new connections"})
}

func jsonResponse(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func handleAdvanceSlot(n *node) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			jsonResponse(w, http.StatusMethodNotAllowed, controlResponse{Message: "method not allowed"})
			return
		}
		var req struct {
			Count int `json:"count"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Count <= 0 {
			req.Count = 1
		}

		var slot uint64
		for i := 0; i < req.Count; i++ {
			slot = n.AdvanceSlot()
		}
		jsonResponse(w, http.StatusOK, controlResponse{Success: true, Message: "advanced slot", Slot: slot})
	}
}

func handleConfirmSlot(n *node) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			jsonResponse(w, http.StatusMethodNotAllowed, controlResponse{Message: "method not allowed"})
			return
		}
		var req struct {
			Slot uint64 `json:"slot"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			jsonResponse(w, http.StatusBadRequest, controlResponse{Message: "invalid request body"})
			return
		}
		n.ConfirmSlot(req.Slot)
		jsonResponse(w, http.StatusOK, controlResponse{Success: true, Message: "confirmed slot", Slot: req.Slot})
	}
}

func handleSetRoot(n *node) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			jsonResponse(w, http.StatusMethodNotAllowed, controlResponse{Message: "method not allowed"})
			return
		}
		var req struct {
			Slot uint64 `json:"slot"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			jsonResponse(w, http.StatusBadRequest, controlResponse{Message: "invalid request body"})
			return
		}
		n.SetRoot(req.Slot)
		jsonResponse(w, http.StatusOK, controlResponse{Success: true, Message: "set root", Slot: req.Slot})
	}
}

func handleReorg(n *node) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			jsonResponse(w, http.StatusMethodNotAllowed, controlResponse{Message: "method not allowed"})
			return
		}
		var req struct {
			ToSlot uint64 `json:"to_slot"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			jsonResponse(w, http.StatusBadRequest, controlResponse{Message: "invalid request body"})
			return
		}
		n.Reorg(req.ToSlot)
		jsonResponse(w, http.StatusOK, controlResponse{Success: true, Message: "reverted to slot", Slot: req.ToSlot})
	}
}

func handleSetAccount(n *node) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			jsonResponse(w, http.StatusMethodNotAllowed, controlResponse{Message: "method not allowed"})
			return
		}
		var req struct {
			Pubkey     string `json:"pubkey"`
			Owner      string `json:"owner"`
			Lamports   uint64 `json:"lamports"`
			Data       string `json:"data"` // base64
			Executable bool   `json:"executable"`
			RentEpoch  uint64 `json:"rentEpoch"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			jsonResponse(w, http.StatusBadRequest, controlResponse{Message: "invalid request body"})
			return
		}

		data, err := base64.StdEncoding.DecodeString(req.Data)
		if err != nil {
			jsonResponse(w, http.StatusBadRequest, controlResponse{Message: "invalid base64 data"})
			return
		}

		n.SetAccount(req.Pubkey, ledger.Account{
			Lamports:   req.Lamports,
			Owner:      req.Owner,
			Data:       data,
			Executable: req.Executable,
			RentEpoch:  req.RentEpoch,
		})
		jsonResponse(w, http.StatusOK, controlResponse{Success: true, Message: "staged account write"})
	}
}

func handleVote(n *node) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			jsonResponse(w, http.StatusMethodNotAllowed, controlResponse{Message: "method not allowed"})
			return
		}
		var req struct {
			Slots     []uint64 `json:"slots"`
			Timestamp *int64   `json:"timestamp"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			jsonResponse(w, http.StatusBadRequest, controlResponse{Message: "invalid request body"})
			return
		}

		hash := voteHashFromSlots(req.Slots)
		n.control.NotifyVote(req.Slots, hash, req.Timestamp)
		jsonResponse(w, http.StatusOK, controlResponse{Success: true, Message: "simulated vote"})
	}
}
