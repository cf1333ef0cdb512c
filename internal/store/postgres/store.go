package postgres

import (
	"context"
	"errors"
	"time"

	"antrean/queue-service/internal/models"
	"antrean/queue-service/internal/store"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const counterColumns = "id, name, current_queue, max_queue, is_active"

func (s *Store) CreateCounter(ctx context.Context, input store.CreateCounterInput) (models.Counter, error) {
	var counter models.Counter
	row := s.pool.QueryRow(ctx, `
		INSERT INTO counters (name, max_queue)
		VALUES ($1, $2)
		RETURNING `+counterColumns+`
	`, input.Name, input.MaxQueue)
	if err := scanCounter(row, &counter); err != nil {
		return models.Counter{}, err
	}
	return counter, nil
}

func (s *Store) UpdateCounter(ctx context.Context, input store.UpdateCounterInput) (models.Counter, error) {
	var counter models.Counter
	row := s.pool.QueryRow(ctx, `
		UPDATE counters
		SET name = COALESCE($2, name),
			max_queue = COALESCE($3, max_queue)
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING `+counterColumns+`
	`, input.ID, input.Name, input.MaxQueue)
	if err := scanCounter(row, &counter); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Counter{}, store.ErrCounterNotFound
		}
		return models.Counter{}, err
	}
	return counter, nil
}

func (s *Store) SetCounterStatus(ctx context.Context, id int64, status store.CounterStatusValue) error {
	var query string
	args := []interface{}{id}
	switch status {
	case store.CounterActive:
		query = `UPDATE counters SET is_active = TRUE WHERE id = $1 AND deleted_at IS NULL`
	case store.CounterInactive:
		query = `UPDATE counters SET is_active = FALSE WHERE id = $1 AND deleted_at IS NULL`
	case store.CounterDisable:
		query = `UPDATE counters SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`
		args = append(args, time.Now().UTC())
	default:
		return store.ErrInvalidTransition
	}

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrCounterNotFound
	}
	return nil
}

func (s *Store) DeleteCounter(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE counters
		SET deleted_at = $2
		WHERE id = $1 AND deleted_at IS NULL
	`, id, time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrCounterNotFound
	}
	return nil
}

func (s *Store) GetCounter(ctx context.Context, id int64) (models.Counter, error) {
	var counter models.Counter
	row := s.pool.QueryRow(ctx, `
		SELECT `+counterColumns+`
		FROM counters
		WHERE id = $1 AND deleted_at IS NULL
	`, id)
	if err := scanCounter(row, &counter); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Counter{}, store.ErrCounterNotFound
		}
		return models.Counter{}, err
	}
	return counter, nil
}

func (s *Store) ListCounters(ctx context.Context, page, limit int) ([]models.Counter, store.Pagination, error) {
	page, limit = store.NormalizePage(page, limit)

	var total int
	row := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM counters WHERE deleted_at IS NULL`)
	if err := row.Scan(&total); err != nil {
		return nil, store.Pagination{}, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+counterColumns+`
		FROM counters
		WHERE deleted_at IS NULL
		ORDER BY id ASC
		LIMIT $1 OFFSET $2
	`, limit, (page-1)*limit)
	if err != nil {
		return nil, store.Pagination{}, err
	}
	defer rows.Close()

	counters, err := collectCounters(rows)
	if err != nil {
		return nil, store.Pagination{}, err
	}
	return counters, store.NewPagination(total, page, limit), nil
}

func (s *Store) CurrentCounters(ctx context.Context) ([]models.Counter, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+counterColumns+`
		FROM counters
		WHERE is_active = TRUE AND deleted_at IS NULL
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCounters(rows)
}

func (s *Store) IssueTicket(ctx context.Context, counterID int64) (models.Ticket, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Ticket{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	counter, err := lockCounter(ctx, tx, counterID)
	if err != nil {
		return models.Ticket{}, err
	}

	ticket, err := issueLocked(ctx, tx, counter)
	if err != nil {
		return models.Ticket{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return models.Ticket{}, err
	}
	return ticket, nil
}

func (s *Store) ClaimTicket(ctx context.Context) (models.Ticket, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Ticket{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	counter, err := lockLeastLoadedCounter(ctx, tx)
	if err != nil {
		return models.Ticket{}, err
	}

	ticket, err := issueLocked(ctx, tx, counter)
	if err != nil {
		return models.Ticket{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return models.Ticket{}, err
	}
	return ticket, nil
}

func (s *Store) ReleaseTicket(ctx context.Context, ticketID int64) (models.Ticket, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Ticket{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	// A released ticket keeps its number and the counter keeps its
	// occupancy: capacity tracks cumulative issuance, not pending load.
	ticket, err := updateStatusFrom(ctx, tx, ticketID, models.StatusWaiting, models.StatusReleased)
	if err != nil {
		return models.Ticket{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return models.Ticket{}, err
	}
	return ticket, nil
}

func (s *Store) CallNext(ctx context.Context, counterID int64) (models.Ticket, bool, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Ticket{}, false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	ticket, found, err := popOldest(ctx, tx, counterID, models.StatusWaiting, models.StatusCalled)
	if err != nil {
		return models.Ticket{}, false, err
	}

	if err = tx.Commit(ctx); err != nil {
		return models.Ticket{}, false, err
	}
	return ticket, found, nil
}

func (s *Store) SkipCurrent(ctx context.Context, counterID int64) (models.Ticket, bool, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Ticket{}, false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	// Skip and call-next commit together: the counter never ends up with
	// a skipped ticket but no replacement when one is waiting.
	if _, _, err = popOldest(ctx, tx, counterID, models.StatusCalled, models.StatusSkipped); err != nil {
		return models.Ticket{}, false, err
	}

	ticket, found, err := popOldest(ctx, tx, counterID, models.StatusWaiting, models.StatusCalled)
	if err != nil {
		return models.Ticket{}, false, err
	}

	if err = tx.Commit(ctx); err != nil {
		return models.Ticket{}, false, err
	}
	return ticket, found, nil
}

func (s *Store) AdvanceTicket(ctx context.Context, counterID int64) (models.Ticket, bool, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Ticket{}, false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	ticket, found, err := popOldest(ctx, tx, counterID, models.StatusWaiting, models.StatusProcessing)
	if err != nil {
		return models.Ticket{}, false, err
	}

	if err = tx.Commit(ctx); err != nil {
		return models.Ticket{}, false, err
	}
	return ticket, found, nil
}

func (s *Store) ResetCounters(ctx context.Context, counterID *int64) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	query := `
		SELECT id
		FROM counters
		WHERE is_active = TRUE AND deleted_at IS NULL
	`
	args := []interface{}{}
	if counterID != nil {
		query += " AND id = $1"
		args = append(args, *counterID)
	}
	query += " ORDER BY id ASC FOR UPDATE"

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return err
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		err = store.ErrCounterNotFound
		return err
	}

	exempt := make([]string, 0, len(store.ResetExempt()))
	for _, status := range store.ResetExempt() {
		exempt = append(exempt, string(status))
	}

	if _, err = tx.Exec(ctx, `
		UPDATE tickets
		SET status = $1
		WHERE counter_id = ANY($2) AND NOT (status = ANY($3))
	`, models.StatusReset, ids, exempt); err != nil {
		return err
	}

	if _, err = tx.Exec(ctx, `
		UPDATE counters
		SET current_queue = 0
		WHERE id = ANY($1)
	`, ids); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

const ticketColumns = "t.id, t.counter_id, t.number, t.status, t.created_at, c.name"

func (s *Store) GetTicket(ctx context.Context, id int64) (models.Ticket, error) {
	var ticket models.Ticket
	row := s.pool.QueryRow(ctx, `
		SELECT `+ticketColumns+`
		FROM tickets t
		JOIN counters c ON c.id = t.counter_id
		WHERE t.id = $1
	`, id)
	if err := scanTicket(row, &ticket); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Ticket{}, store.ErrTicketNotFound
		}
		return models.Ticket{}, err
	}
	return ticket, nil
}

func (s *Store) ListTickets(ctx context.Context, page, limit int, counterID *int64) ([]models.Ticket, store.Pagination, error) {
	page, limit = store.NormalizePage(page, limit)

	countQuery := `SELECT COUNT(*) FROM tickets`
	listQuery := `
		SELECT ` + ticketColumns + `
		FROM tickets t
		JOIN counters c ON c.id = t.counter_id
	`
	countArgs := []interface{}{}
	listArgs := []interface{}{}
	if counterID != nil {
		countQuery += " WHERE counter_id = $1"
		countArgs = append(countArgs, *counterID)
		listQuery += " WHERE t.counter_id = $3"
		listArgs = append(listArgs, *counterID)
	}
	listQuery += " ORDER BY t.created_at ASC, t.id ASC LIMIT $1 OFFSET $2"
	listArgs = append([]interface{}{limit, (page - 1) * limit}, listArgs...)

	var total int
	row := s.pool.QueryRow(ctx, countQuery, countArgs...)
	if err := row.Scan(&total); err != nil {
		return nil, store.Pagination{}, err
	}

	rows, err := s.pool.Query(ctx, listQuery, listArgs...)
	if err != nil {
		return nil, store.Pagination{}, err
	}
	defer rows.Close()

	var tickets []models.Ticket
	for rows.Next() {
		var ticket models.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, store.Pagination{}, err
		}
		tickets = append(tickets, ticket)
	}
	if err := rows.Err(); err != nil {
		return nil, store.Pagination{}, err
	}
	return tickets, store.NewPagination(total, page, limit), nil
}

func (s *Store) UpdateTicketStatus(ctx context.Context, id int64, status models.Status) (models.Ticket, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Ticket{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	current, err := lockTicketStatus(ctx, tx, id)
	if err != nil {
		return models.Ticket{}, err
	}
	if !store.CanTransition(current, status) {
		err = store.ErrInvalidTransition
		return models.Ticket{}, err
	}

	ticket, err := updateStatusFrom(ctx, tx, id, current, status)
	if err != nil {
		return models.Ticket{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return models.Ticket{}, err
	}
	return ticket, nil
}

func (s *Store) DeleteTicket(ctx context.Context, id int64) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	// Only unclaimed tickets may be removed outright; everything else is
	// audit trail and leaves the store through status transitions.
	tag, err := tx.Exec(ctx, `
		DELETE FROM tickets
		WHERE id = $1 AND status = $2
	`, id, models.StatusWaiting)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, err = lockTicketStatus(ctx, tx, id); err != nil {
			return err
		}
		err = store.ErrInvalidTransition
		return err
	}

	return tx.Commit(ctx)
}

func (s *Store) CountTicketsByStatus(ctx context.Context) (store.StatusCounts, error) {
	var counts store.StatusCounts
	row := s.pool.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN status = 'waiting' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'called' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'processing' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'skipped' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'done' THEN 1 ELSE 0 END), 0)
		FROM tickets
	`)
	if err := row.Scan(&counts.Waiting, &counts.Called, &counts.Processing, &counts.Skipped, &counts.Done); err != nil {
		return store.StatusCounts{}, err
	}
	return counts, nil
}

type counterRow struct {
	id           int64
	name         string
	currentQueue int
	maxQueue     int
}

// lockCounter takes the counter row lock that serializes concurrent ticket
// issuance: current_queue is only ever read under this lock.
func lockCounter(ctx context.Context, tx pgx.Tx, counterID int64) (counterRow, error) {
	var c counterRow
	row := tx.QueryRow(ctx, `
		SELECT id, name, current_queue, max_queue
		FROM counters
		WHERE id = $1 AND is_active = TRUE AND deleted_at IS NULL
		FOR UPDATE
	`, counterID)
	if err := row.Scan(&c.id, &c.name, &c.currentQueue, &c.maxQueue); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return counterRow{}, store.ErrCounterNotFound
		}
		return counterRow{}, err
	}
	return c, nil
}

// lockLeastLoadedCounter picks the claim target: smallest current_queue,
// ties broken by id ascending so the first-registered counter wins. No
// fallback to another counter when the pick is full; selection stays
// deterministic.
func lockLeastLoadedCounter(ctx context.Context, tx pgx.Tx) (counterRow, error) {
	var c counterRow
	row := tx.QueryRow(ctx, `
		SELECT id, name, current_queue, max_queue
		FROM counters
		WHERE is_active = TRUE AND deleted_at IS NULL
		ORDER BY current_queue ASC, id ASC
		LIMIT 1
		FOR UPDATE
	`)
	if err := row.Scan(&c.id, &c.name, &c.currentQueue, &c.maxQueue); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return counterRow{}, store.ErrCounterNotFound
		}
		return counterRow{}, err
	}
	return c, nil
}

func issueLocked(ctx context.Context, tx pgx.Tx, counter counterRow) (models.Ticket, error) {
	if counter.currentQueue >= counter.maxQueue {
		return models.Ticket{}, store.ErrCounterFull
	}
	next := counter.currentQueue + 1

	var ticket models.Ticket
	row := tx.QueryRow(ctx, `
		INSERT INTO tickets (counter_id, number, status, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, counter_id, number, status, created_at
	`, counter.id, next, models.StatusWaiting, time.Now().UTC())
	if err := row.Scan(&ticket.ID, &ticket.CounterID, &ticket.Number, &ticket.Status, &ticket.CreatedAt); err != nil {
		return models.Ticket{}, err
	}
	ticket.CounterName = counter.name

	if _, err := tx.Exec(ctx, `
		UPDATE counters
		SET current_queue = $1
		WHERE id = $2
	`, next, counter.id); err != nil {
		return models.Ticket{}, err
	}
	return ticket, nil
}

// popOldest moves the oldest ticket of a counter in status `from` to status
// `to` and returns it. An empty queue is a normal outcome, not an error.
func popOldest(ctx context.Context, tx pgx.Tx, counterID int64, from, to models.Status) (models.Ticket, bool, error) {
	var ticket models.Ticket
	row := tx.QueryRow(ctx, `
		WITH next_ticket AS (
			SELECT id
			FROM tickets
			WHERE counter_id = $1 AND status = $2
			ORDER BY created_at ASC, id ASC
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		UPDATE tickets
		SET status = $3
		FROM next_ticket
		WHERE tickets.id = next_ticket.id
		RETURNING tickets.id, tickets.counter_id, tickets.number, tickets.status, tickets.created_at
	`, counterID, from, to)
	if err := row.Scan(&ticket.ID, &ticket.CounterID, &ticket.Number, &ticket.Status, &ticket.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Ticket{}, false, nil
		}
		return models.Ticket{}, false, err
	}
	return ticket, true, nil
}

// updateStatusFrom applies a conditional status update and classifies the
// no-row outcome by re-reading the row: missing ticket vs. wrong state.
func updateStatusFrom(ctx context.Context, tx pgx.Tx, ticketID int64, from, to models.Status) (models.Ticket, error) {
	var ticket models.Ticket
	row := tx.QueryRow(ctx, `
		WITH updated AS (
			UPDATE tickets
			SET status = $3
			WHERE id = $1 AND status = $2
			RETURNING id, counter_id, number, status, created_at
		)
		SELECT u.id, u.counter_id, u.number, u.status, u.created_at, c.name
		FROM updated u
		JOIN counters c ON c.id = u.counter_id
	`, ticketID, from, to)
	if err := scanTicket(row, &ticket); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if _, stateErr := lockTicketStatus(ctx, tx, ticketID); stateErr != nil {
				return models.Ticket{}, stateErr
			}
			return models.Ticket{}, store.ErrInvalidTransition
		}
		return models.Ticket{}, err
	}
	return ticket, nil
}

func lockTicketStatus(ctx context.Context, tx pgx.Tx, ticketID int64) (models.Status, error) {
	var status models.Status
	row := tx.QueryRow(ctx, `
		SELECT status
		FROM tickets
		WHERE id = $1
		FOR UPDATE
	`, ticketID)
	if err := row.Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", store.ErrTicketNotFound
		}
		return "", err
	}
	return status, nil
}

func scanCounter(row pgx.Row, counter *models.Counter) error {
	return row.Scan(&counter.ID, &counter.Name, &counter.CurrentQueue, &counter.MaxQueue, &counter.IsActive)
}

func scanTicket(row pgx.Row, ticket *models.Ticket) error {
	return row.Scan(&ticket.ID, &ticket.CounterID, &ticket.Number, &ticket.Status, &ticket.CreatedAt, &ticket.CounterName)
}

func collectCounters(rows pgx.Rows) ([]models.Counter, error) {
	var counters []models.Counter
	for rows.Next() {
		var counter models.Counter
		if err := scanCounter(rows, &counter); err != nil {
			return nil, err
		}
		counters = append(counters, counter)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return counters, nil
}
