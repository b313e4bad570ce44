package apitest

import (
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"roomboard/internal/models"
)

// posStep is the gap left between neighbouring positions after a renumber.
const posStep = 1000

// apiError is a failure with the status the handler should answer with.
type apiError struct {
	status int
	msg    string
}

func (e *apiError) Error() string { return e.msg }

func fail(status int, msg string) error { return &apiError{status: status, msg: msg} }

var (
	errRoomNotFound   = fail(http.StatusNotFound, "Room not found.")
	errBoardNotFound  = fail(http.StatusNotFound, "Board not found.")
	errColumnNotFound = fail(http.StatusNotFound, "Column not found.")
	errCardNotFound   = fail(http.StatusNotFound, "Card not found.")
	errForbidden      = fail(http.StatusForbidden, "You do not have permission to do that.")
)

type user struct {
	id          string
	name        string
	displayName *string
	email       *string
}

type room struct {
	id    string
	name  string
	owner string
	seq   int
}

type boardRec struct {
	id     string
	roomID string
	name   string
	pos    int64
}

type columnRec struct {
	id        int64
	boardID   string
	title     string
	pos       int64
	wip       *int
	parentID  *int64
	deletedAt *time.Time
}

type cardRec struct {
	id          string
	columnID    int64
	title       string
	description *string
	pos         int64
	deletedAt   *time.Time
	// cascaded marks a card archived together with its column.
	cascaded bool
}

type inviteRec struct {
	code      string
	roomID    string
	role      models.Role
	maxUses   int
	used      int
	expiresAt *time.Time
	seq       int
}

// store keeps all server state in memory behind one mutex.
type store struct {
	mu  sync.Mutex
	now func() time.Time
	seq int

	users   map[string]*user
	rooms   map[string]*room
	roles   map[string]map[string]models.Role // room -> user -> role
	boards  map[string]*boardRec
	columns map[int64]*columnRec
	cards   map[string]*cardRec
	invites map[string]*inviteRec

	nextColumn int64
}

func newStore(now func() time.Time) *store {
	return &store{
		now:     now,
		users:   make(map[string]*user),
		rooms:   make(map[string]*room),
		roles:   make(map[string]map[string]models.Role),
		boards:  make(map[string]*boardRec),
		columns: make(map[int64]*columnRec),
		cards:   make(map[string]*cardRec),
		invites: make(map[string]*inviteRec),
	}
}

func (s *store) next() int { s.seq++; return s.seq }

func (s *store) stamp() *time.Time {
	t := s.now().UTC().Truncate(time.Second)
	return &t
}

func (s *store) addUser(name string, displayName, email *string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	s.users[id] = &user{id: id, name: name, displayName: displayName, email: email}
	return id
}

func (s *store) hasUser(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.users[id]
	return ok
}

// access returns the room and the user's role in it. Non-members get 404 so room ids do
// not leak.
func (s *store) access(userID, roomID string) (*room, models.Role, error) {
	r, ok := s.rooms[roomID]
	if !ok {
		return nil, "", errRoomNotFound
	}
	role, ok := s.roles[roomID][userID]
	if !ok {
		return nil, "", errRoomNotFound
	}
	return r, role, nil
}

func (s *store) require(userID, roomID string, min models.Role) (*room, models.Role, error) {
	r, role, err := s.access(userID, roomID)
	if err != nil {
		return nil, "", err
	}
	if role.Priority() < min.Priority() {
		return nil, "", errForbidden
	}
	return r, role, nil
}

func (s *store) board(roomID, boardID string) (*boardRec, error) {
	b, ok := s.boards[boardID]
	if !ok || b.roomID != roomID {
		return nil, errBoardNotFound
	}
	return b, nil
}

func (s *store) column(boardID string, id int64) (*columnRec, error) {
	c, ok := s.columns[id]
	if !ok || c.boardID != boardID {
		return nil, errColumnNotFound
	}
	return c, nil
}

func (s *store) liveColumn(boardID string, id int64) (*columnRec, error) {
	c, err := s.column(boardID, id)
	if err != nil {
		return nil, err
	}
	if c.deletedAt != nil {
		return nil, errColumnNotFound
	}
	return c, nil
}

func (s *store) card(columnID int64, id string) (*cardRec, error) {
	c, ok := s.cards[id]
	if !ok || c.columnID != columnID {
		return nil, errCardNotFound
	}
	return c, nil
}

// rooms

func (s *store) createRoom(userID, name string) (*room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fail(http.StatusUnprocessableEntity, "Room name is required.")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r := &room{id: uuid.NewString(), name: name, owner: userID, seq: s.next()}
	s.rooms[r.id] = r
	s.roles[r.id] = map[string]models.Role{userID: models.RoleOwner}
	return r, nil
}

func (s *store) roomsOf(userID string) []models.Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	var rs []*room
	for id, r := range s.rooms {
		if _, ok := s.roles[id][userID]; ok {
			rs = append(rs, r)
		}
	}
	sort.Slice(rs, func(i, j int) bool { return rs[i].seq < rs[j].seq })
	out := make([]models.Room, 0, len(rs))
	for _, r := range rs {
		out = append(out, s.roomJSON(r, userID))
	}
	return out
}

func (s *store) roomFor(userID, roomID string) (models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, _, err := s.access(userID, roomID)
	if err != nil {
		return models.Room{}, err
	}
	return s.roomJSON(r, userID), nil
}

func (s *store) roomJSON(r *room, userID string) models.Room {
	out := models.Room{
		PublicID:   r.id,
		Name:       r.name,
		Boards:     []models.BoardSummary{},
		Members:    s.membersOf(r.id),
		Membership: models.Membership{Role: s.roles[r.id][userID], UserPublicID: userID},
	}
	for _, b := range s.boardsOf(r.id) {
		out.Boards = append(out.Boards, models.BoardSummary{PublicID: b.id, Name: b.name})
	}
	return out
}

func (s *store) deleteRoom(userID, roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, _, err := s.require(userID, roomID, models.RoleOwner); err != nil {
		return err
	}
	for _, b := range s.boardsOf(roomID) {
		for id, c := range s.columns {
			if c.boardID != b.id {
				continue
			}
			for cid, card := range s.cards {
				if card.columnID == id {
					delete(s.cards, cid)
				}
			}
			delete(s.columns, id)
		}
		delete(s.boards, b.id)
	}
	for code, inv := range s.invites {
		if inv.roomID == roomID {
			delete(s.invites, code)
		}
	}
	delete(s.roles, roomID)
	delete(s.rooms, roomID)
	return nil
}

func (s *store) leaveRoom(userID, roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, role, err := s.access(userID, roomID)
	if err != nil {
		return err
	}
	if role == models.RoleOwner {
		return fail(http.StatusConflict, "The owner cannot leave the room.")
	}
	delete(s.roles[roomID], userID)
	return nil
}

// members

func (s *store) memberJSON(roomID, userID string) models.Member {
	u := s.users[userID]
	return models.Member{
		UserPublicID: u.id,
		DisplayName:  u.displayName,
		Name:         u.name,
		Email:        u.email,
		Role:         s.roles[roomID][userID],
	}
}

// membersOf lists members by role weight, then name.
func (s *store) membersOf(roomID string) []models.Member {
	out := make([]models.Member, 0, len(s.roles[roomID]))
	for uid := range s.roles[roomID] {
		out = append(out, s.memberJSON(roomID, uid))
	}
	sort.Slice(out, func(i, j int) bool {
		if pi, pj := out[i].Role.Priority(), out[j].Role.Priority(); pi != pj {
			return pi > pj
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].UserPublicID < out[j].UserPublicID
	})
	return out
}

func (s *store) members(userID, roomID string) ([]models.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, _, err := s.access(userID, roomID); err != nil {
		return nil, err
	}
	return s.membersOf(roomID), nil
}

func (s *store) setRole(userID, roomID, memberID string, role models.Role, confirmation string) (models.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, _, err := s.require(userID, roomID, models.RoleAdmin); err != nil {
		return models.Member{}, err
	}
	current, ok := s.roles[roomID][memberID]
	if !ok {
		return models.Member{}, fail(http.StatusNotFound, "Member not found.")
	}
	if current == models.RoleOwner {
		return models.Member{}, fail(http.StatusConflict, "The room owner cannot be changed.")
	}
	if !role.Editable() {
		return models.Member{}, fail(http.StatusUnprocessableEntity, "Invalid role.")
	}
	if role.Priority() > current.Priority() {
		label := s.memberJSON(roomID, memberID).Label()
		if strings.TrimSpace(confirmation) != label {
			return models.Member{}, fail(http.StatusUnprocessableEntity, "Confirmation name does not match.")
		}
	}
	s.roles[roomID][memberID] = role
	return s.memberJSON(roomID, memberID), nil
}

// invites

func (s *store) inviteJSON(inv *inviteRec) models.Invite {
	out := models.Invite{Code: inv.code, Role: inv.role, MaxUses: inv.maxUses, Used: inv.used, ExpiresAt: inv.expiresAt}
	return out.Normalized()
}

func (s *store) invitesOf(userID, roomID string) ([]models.Invite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, _, err := s.require(userID, roomID, models.RoleAdmin); err != nil {
		return nil, err
	}
	var recs []*inviteRec
	for _, inv := range s.invites {
		if inv.roomID == roomID {
			recs = append(recs, inv)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].seq > recs[j].seq })
	out := make([]models.Invite, 0, len(recs))
	for _, inv := range recs {
		out = append(out, s.inviteJSON(inv))
	}
	return out, nil
}

func (s *store) createInvite(userID, roomID string, role models.Role, maxUses, expiresInHours *int) (models.Invite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, _, err := s.require(userID, roomID, models.RoleAdmin); err != nil {
		return models.Invite{}, err
	}
	if !role.Invitable() {
		return models.Invite{}, fail(http.StatusUnprocessableEntity, "Invites can only grant VIEWER or MEMBER.")
	}
	uses, hours := 1, 7*24
	if maxUses != nil {
		uses = *maxUses
	}
	if expiresInHours != nil {
		hours = *expiresInHours
	}
	if uses <= 0 || hours <= 0 {
		return models.Invite{}, fail(http.StatusUnprocessableEntity, "max_uses and expires_in_hours must be positive.")
	}
	exp := s.now().UTC().Add(time.Duration(hours) * time.Hour).Truncate(time.Second)
	inv := &inviteRec{
		code:      strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10]),
		roomID:    roomID,
		role:      role,
		maxUses:   uses,
		expiresAt: &exp,
		seq:       s.next(),
	}
	s.invites[inv.code] = inv
	return s.inviteJSON(inv), nil
}

func (s *store) revokeInvite(userID, roomID, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, _, err := s.require(userID, roomID, models.RoleAdmin); err != nil {
		return err
	}
	inv, ok := s.invites[code]
	if !ok || inv.roomID != roomID {
		return fail(http.StatusNotFound, "Invite not found.")
	}
	delete(s.invites, code)
	return nil
}

func (s *store) acceptInvite(userID, code string) (*room, *inviteRec, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invites[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return nil, nil, fail(http.StatusNotFound, "Invite not found.")
	}
	r := s.rooms[inv.roomID]
	if _, member := s.roles[r.id][userID]; member {
		return nil, nil, fail(http.StatusConflict, "You are already a member of this room.")
	}
	rec := s.inviteJSON(inv)
	if rec.Expired(s.now()) {
		return nil, nil, fail(http.StatusUnprocessableEntity, "Invite has expired.")
	}
	if rec.RemainingUses() == 0 {
		return nil, nil, fail(http.StatusUnprocessableEntity, "Invite has no uses left.")
	}
	inv.used++
	s.roles[r.id][userID] = inv.role
	return r, inv, nil
}

// boards

func (s *store) boardsOf(roomID string) []*boardRec {
	var out []*boardRec
	for _, b := range s.boards {
		if b.roomID == roomID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].pos < out[j].pos })
	return out
}

func boardJSON(b *boardRec) models.Board {
	return models.Board{PublicID: b.id, Name: b.name, RoomID: b.roomID}
}

func (s *store) boardIDs(userID, roomID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, _, err := s.access(userID, roomID); err != nil {
		return nil, err
	}
	ids := []string{}
	for _, b := range s.boardsOf(roomID) {
		ids = append(ids, b.id)
	}
	return ids, nil
}

func validBoardName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fail(http.StatusUnprocessableEntity, "Board name is required.")
	}
	return name, nil
}

func (s *store) createBoard(userID, roomID, name string) (models.Board, error) {
	name, err := validBoardName(name)
	if err != nil {
		return models.Board{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, _, err := s.require(userID, roomID, models.RoleMember); err != nil {
		return models.Board{}, err
	}
	b := &boardRec{id: uuid.NewString(), roomID: roomID, name: name, pos: int64(s.next()) * posStep}
	s.boards[b.id] = b
	return boardJSON(b), nil
}

func (s *store) renameBoard(userID, roomID, boardID, name string) (models.Board, error) {
	name, err := validBoardName(name)
	if err != nil {
		return models.Board{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, _, err := s.require(userID, roomID, models.RoleMember); err != nil {
		return models.Board{}, err
	}
	b, err := s.board(roomID, boardID)
	if err != nil {
		return models.Board{}, err
	}
	b.name = name
	return boardJSON(b), nil
}

// detail returns live columns with their live cards in insertion order; clients sort by
// position themselves.
func (s *store) detail(userID, roomID, boardID string) (models.BoardDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, _, err := s.access(userID, roomID); err != nil {
		return models.BoardDetail{}, err
	}
	b, err := s.board(roomID, boardID)
	if err != nil {
		return models.BoardDetail{}, err
	}
	out := models.BoardDetail{Board: boardJSON(b), Columns: []models.Column{}}
	for _, c := range s.columnsOf(boardID, false) {
		col := columnJSON(c)
		for _, card := range s.cardsOf(c.id, false) {
			col.Cards = append(col.Cards, cardJSON(card))
		}
		out.Columns = append(out.Columns, col)
	}
	return out, nil
}

// columnsOf returns the board's columns by id. archived selects soft-deleted ones instead
// of live ones.
func (s *store) columnsOf(boardID string, archived bool) []*columnRec {
	var out []*columnRec
	for _, c := range s.columns {
		if c.boardID == boardID && (c.deletedAt != nil) == archived {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

func (s *store) cardsOf(columnID int64, archived bool) []*cardRec {
	var out []*cardRec
	for _, c := range s.cards {
		if c.columnID == columnID && (c.deletedAt != nil) == archived {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].pos != out[j].pos {
			return out[i].pos < out[j].pos
		}
		return out[i].id < out[j].id
	})
	return out
}

func columnJSON(c *columnRec) models.Column {
	return models.Column{
		ID:        c.id,
		Title:     c.title,
		Position:  float64(c.pos),
		WIPLimit:  c.wip,
		ParentID:  c.parentID,
		DeletedAt: c.deletedAt,
		Cards:     []models.Card{},
	}
}

func cardJSON(c *cardRec) models.Card {
	return models.Card{
		ID:          c.id,
		Title:       c.title,
		Description: c.description,
		Position:    float64(c.pos),
		ColumnID:    c.columnID,
		DeletedAt:   c.deletedAt,
	}
}

func (s *store) archive(userID, roomID, boardID string) (models.Archive, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, _, err := s.access(userID, roomID); err != nil {
		return models.Archive{}, err
	}
	if _, err := s.board(roomID, boardID); err != nil {
		return models.Archive{}, err
	}
	out := models.Archive{Columns: []models.ArchivedColumn{}, Cards: []models.ArchivedCard{}}
	for _, c := range s.columnsOf(boardID, true) {
		out.Columns = append(out.Columns, models.ArchivedColumn{ID: c.id, Title: c.title, DeletedAt: c.deletedAt})
	}
	var all []*columnRec
	for _, c := range s.columns {
		if c.boardID == boardID {
			all = append(all, c)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].id < all[j].id })
	for _, col := range all {
		for _, c := range s.cardsOf(col.id, true) {
			out.Cards = append(out.Cards, models.ArchivedCard{PublicID: c.id, Title: c.title, ColumnID: c.columnID, DeletedAt: c.deletedAt})
		}
	}
	return out, nil
}

// writable resolves a board the user may edit.
func (s *store) writable(userID, roomID, boardID string) (*boardRec, error) {
	if _, _, err := s.require(userID, roomID, models.RoleMember); err != nil {
		return nil, err
	}
	return s.board(roomID, boardID)
}

// columns

func (s *store) nextColumnPos(boardID string) int64 {
	var max int64
	for _, c := range s.columns {
		if c.boardID == boardID && c.deletedAt == nil && c.pos > max {
			max = c.pos
		}
	}
	return max + posStep
}

func validColumnTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", fail(http.StatusUnprocessableEntity, "Column title is required.")
	}
	return title, nil
}

func validWIP(wip *int) error {
	if wip != nil && *wip < 0 {
		return fail(http.StatusUnprocessableEntity, "wip_limit must not be negative.")
	}
	return nil
}

func (s *store) createColumn(userID, roomID, boardID, title string, wip *int) (models.Column, error) {
	title, err := validColumnTitle(title)
	if err == nil {
		err = validWIP(wip)
	}
	if err != nil {
		return models.Column{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.writable(userID, roomID, boardID); err != nil {
		return models.Column{}, err
	}
	s.nextColumn++
	c := &columnRec{id: s.nextColumn, boardID: boardID, title: title, pos: s.nextColumnPos(boardID), wip: wip}
	s.columns[c.id] = c
	return columnJSON(c), nil
}

// updateColumn applies title when non-nil and wip when setWIP, where a nil wip clears the limit.
func (s *store) updateColumn(userID, roomID, boardID string, id int64, title *string, setWIP bool, wip *int) (models.Column, error) {
	if title != nil {
		t, err := validColumnTitle(*title)
		if err != nil {
			return models.Column{}, err
		}
		title = &t
	}
	if err := validWIP(wip); err != nil {
		return models.Column{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.writable(userID, roomID, boardID); err != nil {
		return models.Column{}, err
	}
	c, err := s.liveColumn(boardID, id)
	if err != nil {
		return models.Column{}, err
	}
	if title != nil {
		c.title = *title
	}
	if setWIP {
		c.wip = wip
	}
	return columnJSON(c), nil
}

// reorderColumns renumbers the listed live columns in the given order.
type columnPos struct {
	ID       int64 `json:"id"`
	Position int64 `json:"position"`
}

type cardPos struct {
	ID       string `json:"id"`
	ColumnID int64  `json:"column_id"`
	Position int64  `json:"position"`
}

func (s *store) reorderColumns(userID, roomID, boardID string, ids []int64) ([]columnPos, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.writable(userID, roomID, boardID); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, fail(http.StatusUnprocessableEntity, "column_ids is required.")
	}
	seen := make(map[int64]bool, len(ids))
	cols := make([]*columnRec, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			return nil, fail(http.StatusUnprocessableEntity, "column_ids contains duplicates.")
		}
		seen[id] = true
		c, err := s.liveColumn(boardID, id)
		if err != nil {
			return nil, fail(http.StatusUnprocessableEntity, "column_ids contains an unknown column.")
		}
		cols = append(cols, c)
	}
	out := make([]columnPos, 0, len(cols))
	for i, c := range cols {
		c.pos = int64(i+1) * posStep
		out = append(out, columnPos{ID: c.id, Position: c.pos})
	}
	return out, nil
}

// archiveColumn soft-deletes the column and its live cards.
func (s *store) archiveColumn(userID, roomID, boardID string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.writable(userID, roomID, boardID); err != nil {
		return err
	}
	c, err := s.liveColumn(boardID, id)
	if err != nil {
		return err
	}
	now := s.stamp()
	c.deletedAt = now
	for _, card := range s.cardsOf(id, false) {
		card.deletedAt, card.cascaded = now, true
	}
	return nil
}

// restoreColumn brings the column back at the end of the board, together with the cards
// that were archived along with it.
func (s *store) restoreColumn(userID, roomID, boardID string, id int64) (models.Column, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.writable(userID, roomID, boardID); err != nil {
		return models.Column{}, err
	}
	c, err := s.column(boardID, id)
	if err != nil {
		return models.Column{}, err
	}
	if c.deletedAt == nil {
		return models.Column{}, fail(http.StatusConflict, "Column is not archived.")
	}
	c.pos = s.nextColumnPos(boardID)
	c.deletedAt = nil
	col := columnJSON(c)
	for _, card := range s.cardsOf(id, true) {
		if card.cascaded {
			card.deletedAt, card.cascaded = nil, false
		}
	}
	for _, card := range s.cardsOf(id, false) {
		col.Cards = append(col.Cards, cardJSON(card))
	}
	return col, nil
}

// hardDeleteColumn removes an archived column. Archived cards still attached to it block the
// delete unless force is set, in which case they move to the first live column.
func (s *store) hardDeleteColumn(userID, roomID, boardID string, id int64, force bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.writable(userID, roomID, boardID); err != nil {
		return err
	}
	c, err := s.column(boardID, id)
	if err != nil {
		return err
	}
	if c.deletedAt == nil {
		return fail(http.StatusConflict, "Archive the column before deleting it.")
	}
	orphans := s.cardsOf(id, true)
	if len(orphans) > 0 {
		if !force {
			return fail(http.StatusConflict, "Column still has archived cards.")
		}
		live := s.columnsOf(boardID, false)
		if len(live) == 0 {
			return fail(http.StatusConflict, "No active column to move archived cards to.")
		}
		sort.SliceStable(live, func(i, j int) bool { return live[i].pos < live[j].pos })
		for _, card := range orphans {
			card.columnID, card.cascaded = live[0].id, false
		}
	}
	delete(s.columns, id)
	return nil
}

// cards

func (s *store) nextCardPos(columnID int64) int64 {
	var max int64
	for _, c := range s.cards {
		if c.columnID == columnID && c.deletedAt == nil && c.pos > max {
			max = c.pos
		}
	}
	return max + posStep
}

func validCardTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", fail(http.StatusUnprocessableEntity, "Card title is required.")
	}
	return title, nil
}

func (s *store) createCard(userID, roomID, boardID string, columnID int64, title string, description *string) (models.Card, error) {
	title, err := validCardTitle(title)
	if err != nil {
		return models.Card{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.writable(userID, roomID, boardID); err != nil {
		return models.Card{}, err
	}
	if _, err := s.liveColumn(boardID, columnID); err != nil {
		return models.Card{}, err
	}
	c := &cardRec{id: uuid.NewString(), columnID: columnID, title: title, description: description, pos: s.nextCardPos(columnID)}
	s.cards[c.id] = c
	return cardJSON(c), nil
}

type cardUpdate struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	ColumnID    *int64  `json:"column_id"`
}

// updateCard edits a live card. A different column_id moves it to the end of that column.
func (s *store) updateCard(userID, roomID, boardID string, columnID int64, id string, in cardUpdate) (models.Card, error) {
	if in.Title != nil {
		t, err := validCardTitle(*in.Title)
		if err != nil {
			return models.Card{}, err
		}
		in.Title = &t
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.writable(userID, roomID, boardID); err != nil {
		return models.Card{}, err
	}
	if _, err := s.liveColumn(boardID, columnID); err != nil {
		return models.Card{}, err
	}
	c, err := s.card(columnID, id)
	if err != nil || c.deletedAt != nil {
		return models.Card{}, errCardNotFound
	}
	if in.ColumnID != nil && *in.ColumnID != c.columnID {
		if _, err := s.liveColumn(boardID, *in.ColumnID); err != nil {
			return models.Card{}, fail(http.StatusUnprocessableEntity, "Target column not found.")
		}
		c.pos = s.nextCardPos(*in.ColumnID)
		c.columnID = *in.ColumnID
	}
	if in.Title != nil {
		c.title = *in.Title
	}
	if in.Description != nil {
		c.description = in.Description
	}
	return cardJSON(c), nil
}

func (s *store) reorderCards(userID, roomID, boardID string, columnID int64, ids []string) ([]cardPos, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.writable(userID, roomID, boardID); err != nil {
		return nil, err
	}
	if _, err := s.liveColumn(boardID, columnID); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, fail(http.StatusUnprocessableEntity, "card_ids is required.")
	}
	seen := make(map[string]bool, len(ids))
	cards := make([]*cardRec, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			return nil, fail(http.StatusUnprocessableEntity, "card_ids contains duplicates.")
		}
		seen[id] = true
		c, err := s.card(columnID, id)
		if err != nil || c.deletedAt != nil {
			return nil, fail(http.StatusUnprocessableEntity, "card_ids contains an unknown card.")
		}
		cards = append(cards, c)
	}
	out := make([]cardPos, 0, len(cards))
	for i, c := range cards {
		c.pos = int64(i+1) * posStep
		out = append(out, cardPos{ID: c.id, ColumnID: columnID, Position: c.pos})
	}
	return out, nil
}

func (s *store) archiveCard(userID, roomID, boardID string, columnID int64, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.writable(userID, roomID, boardID); err != nil {
		return err
	}
	if _, err := s.liveColumn(boardID, columnID); err != nil {
		return err
	}
	c, err := s.card(columnID, id)
	if err != nil || c.deletedAt != nil {
		return errCardNotFound
	}
	c.deletedAt = s.stamp()
	return nil
}

// restoreCard needs the card's column to be live; it lands at the end of the column.
func (s *store) restoreCard(userID, roomID, boardID string, columnID int64, id string) (models.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.writable(userID, roomID, boardID); err != nil {
		return models.Card{}, err
	}
	col, err := s.column(boardID, columnID)
	if err != nil {
		return models.Card{}, err
	}
	c, err := s.card(columnID, id)
	if err != nil {
		return models.Card{}, err
	}
	if c.deletedAt == nil {
		return models.Card{}, fail(http.StatusConflict, "Card is not archived.")
	}
	if col.deletedAt != nil {
		return models.Card{}, fail(http.StatusConflict, "Restore the column first.")
	}
	c.pos = s.nextCardPos(columnID)
	c.deletedAt, c.cascaded = nil, false
	return cardJSON(c), nil
}

func (s *store) hardDeleteCard(userID, roomID, boardID string, columnID int64, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.writable(userID, roomID, boardID); err != nil {
		return err
	}
	if _, err := s.column(boardID, columnID); err != nil {
		return err
	}
	c, err := s.card(columnID, id)
	if err != nil {
		return err
	}
	if c.deletedAt == nil {
		return fail(http.StatusConflict, "Archive the card before deleting it.")
	}
	delete(s.cards, id)
	return nil
}
