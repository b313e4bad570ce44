package apitest

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// boardRef is the room, board and user a board-scoped request acts on.
type boardRef struct {
	user, room, board string
}

func refOf(r *http.Request) boardRef {
	return boardRef{user: userFrom(r.Context()), room: chi.URLParam(r, "roomID"), board: chi.URLParam(r, "boardID")}
}

func columnParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := parseID(chi.URLParam(r, "columnID"))
	if err != nil || id <= 0 {
		writeError(w, 400, "bad id")
		return 0, false
	}
	return id, true
}

func (s *Server) handleBoards(w http.ResponseWriter, r *http.Request) {
	ids, err := s.store.boardIDs(userFrom(r.Context()), chi.URLParam(r, "roomID"))
	if err != nil {
		s.writeFail(w, "boards", err)
		return
	}
	writeJSON(w, 200, map[string]any{"boards": ids})
}

func (s *Server) handleCreateBoard(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, 400, "invalid payload")
		return
	}
	b, err := s.store.createBoard(userFrom(r.Context()), chi.URLParam(r, "roomID"), req.Name)
	if err != nil {
		s.writeFail(w, "create board", err)
		return
	}
	writeJSON(w, 201, map[string]any{"board": b})
}

func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	ref := refOf(r)
	d, err := s.store.detail(ref.user, ref.room, ref.board)
	if err != nil {
		s.writeFail(w, "board", err)
		return
	}
	writeJSON(w, 200, d)
}

func (s *Server) handleRenameBoard(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, 400, "invalid payload")
		return
	}
	ref := refOf(r)
	b, err := s.store.renameBoard(ref.user, ref.room, ref.board, req.Name)
	if err != nil {
		s.writeFail(w, "rename board", err)
		return
	}
	writeJSON(w, 200, map[string]any{"board": b})
}

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	ref := refOf(r)
	a, err := s.store.archive(ref.user, ref.room, ref.board)
	if err != nil {
		s.writeFail(w, "archive", err)
		return
	}
	writeJSON(w, 200, a)
}

func (s *Server) handleCreateColumn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title    string `json:"title"`
		WIPLimit *int   `json:"wip_limit"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, 400, "invalid payload")
		return
	}
	ref := refOf(r)
	c, err := s.store.createColumn(ref.user, ref.room, ref.board, req.Title, req.WIPLimit)
	if err != nil {
		s.writeFail(w, "create column", err)
		return
	}
	writeJSON(w, 201, map[string]any{"board_id": ref.board, "column": c})
}

// handleUpdateColumn distinguishes an absent wip_limit from an explicit null, which clears it.
func (s *Server) handleUpdateColumn(w http.ResponseWriter, r *http.Request) {
	id, ok := columnParam(w, r)
	if !ok {
		return
	}
	var req map[string]json.RawMessage
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, 400, "invalid payload")
		return
	}
	var title *string
	if raw, ok := req["title"]; ok {
		if err := json.Unmarshal(raw, &title); err != nil {
			writeError(w, 400, "invalid payload")
			return
		}
	}
	var wip *int
	raw, setWIP := req["wip_limit"]
	if setWIP {
		if err := json.Unmarshal(raw, &wip); err != nil {
			writeError(w, 400, "invalid payload")
			return
		}
	}
	ref := refOf(r)
	c, err := s.store.updateColumn(ref.user, ref.room, ref.board, id, title, setWIP, wip)
	if err != nil {
		s.writeFail(w, "update column", err)
		return
	}
	writeJSON(w, 200, map[string]any{"column": c})
}

func (s *Server) handleReorderColumns(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ColumnIDs []int64 `json:"column_ids"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, 400, "invalid payload")
		return
	}
	ref := refOf(r)
	cols, err := s.store.reorderColumns(ref.user, ref.room, ref.board, req.ColumnIDs)
	if err != nil {
		s.writeFail(w, "reorder columns", err)
		return
	}
	writeJSON(w, 200, map[string]any{"columns": cols})
}

func (s *Server) handleArchiveColumn(w http.ResponseWriter, r *http.Request) {
	id, ok := columnParam(w, r)
	if !ok {
		return
	}
	ref := refOf(r)
	if err := s.store.archiveColumn(ref.user, ref.room, ref.board, id); err != nil {
		s.writeFail(w, "archive column", err)
		return
	}
	writeJSON(w, 200, map[string]any{"message": "Column archived."})
}

func (s *Server) handleRestoreColumn(w http.ResponseWriter, r *http.Request) {
	id, ok := columnParam(w, r)
	if !ok {
		return
	}
	ref := refOf(r)
	c, err := s.store.restoreColumn(ref.user, ref.room, ref.board, id)
	if err != nil {
		s.writeFail(w, "restore column", err)
		return
	}
	writeJSON(w, 200, map[string]any{"column": c})
}

func (s *Server) handleHardDeleteColumn(w http.ResponseWriter, r *http.Request) {
	id, ok := columnParam(w, r)
	if !ok {
		return
	}
	ref := refOf(r)
	force := r.URL.Query().Get("force") == "true"
	if err := s.store.hardDeleteColumn(ref.user, ref.room, ref.board, id, force); err != nil {
		s.writeFail(w, "delete column", err)
		return
	}
	writeJSON(w, 200, map[string]any{"message": "Column deleted."})
}

func (s *Server) handleCreateCard(w http.ResponseWriter, r *http.Request) {
	id, ok := columnParam(w, r)
	if !ok {
		return
	}
	var req struct {
		Title       string  `json:"title"`
		Description *string `json:"description"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, 400, "invalid payload")
		return
	}
	ref := refOf(r)
	c, err := s.store.createCard(ref.user, ref.room, ref.board, id, req.Title, req.Description)
	if err != nil {
		s.writeFail(w, "create card", err)
		return
	}
	writeJSON(w, 201, map[string]any{"card": c})
}

func (s *Server) handleUpdateCard(w http.ResponseWriter, r *http.Request) {
	id, ok := columnParam(w, r)
	if !ok {
		return
	}
	var req cardUpdate
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, 400, "invalid payload")
		return
	}
	ref := refOf(r)
	c, err := s.store.updateCard(ref.user, ref.room, ref.board, id, chi.URLParam(r, "cardID"), req)
	if err != nil {
		s.writeFail(w, "update card", err)
		return
	}
	writeJSON(w, 200, map[string]any{"card": c})
}

func (s *Server) handleReorderCards(w http.ResponseWriter, r *http.Request) {
	id, ok := columnParam(w, r)
	if !ok {
		return
	}
	var req struct {
		CardIDs []string `json:"card_ids"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, 400, "invalid payload")
		return
	}
	ref := refOf(r)
	cards, err := s.store.reorderCards(ref.user, ref.room, ref.board, id, req.CardIDs)
	if err != nil {
		s.writeFail(w, "reorder cards", err)
		return
	}
	writeJSON(w, 200, map[string]any{"cards": cards})
}

func (s *Server) handleArchiveCard(w http.ResponseWriter, r *http.Request) {
	id, ok := columnParam(w, r)
	if !ok {
		return
	}
	ref := refOf(r)
	if err := s.store.archiveCard(ref.user, ref.room, ref.board, id, chi.URLParam(r, "cardID")); err != nil {
		s.writeFail(w, "archive card", err)
		return
	}
	writeJSON(w, 200, map[string]any{"message": "Card archived."})
}

func (s *Server) handleRestoreCard(w http.ResponseWriter, r *http.Request) {
	id, ok := columnParam(w, r)
	if !ok {
		return
	}
	ref := refOf(r)
	c, err := s.store.restoreCard(ref.user, ref.room, ref.board, id, chi.URLParam(r, "cardID"))
	if err != nil {
		s.writeFail(w, "restore card", err)
		return
	}
	writeJSON(w, 200, map[string]any{"card": c})
}

func (s *Server) handleHardDeleteCard(w http.ResponseWriter, r *http.Request) {
	id, ok := columnParam(w, r)
	if !ok {
		return
	}
	ref := refOf(r)
	if err := s.store.hardDeleteCard(ref.user, ref.room, ref.board, id, chi.URLParam(r, "cardID")); err != nil {
		s.writeFail(w, "delete card", err)
		return
	}
	writeJSON(w, 200, map[string]any{"message": "Card deleted."})
}
