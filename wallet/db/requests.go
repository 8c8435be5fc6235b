package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"sync"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/dev-warrior777/go-electrum-rpc/wallet"
)

type RequestsDB struct {
	db   *sql.DB
	lock *sync.RWMutex
}

func (r *RequestsDB) Put(req *wallet.PaymentRequest) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	var meta []byte
	if len(req.Metadata) > 0 {
		var err error
		meta, err = json.Marshal(req.Metadata)
		if err != nil {
			return err
		}
	}
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare("insert or replace into requests(address, uri, status, statusString, amount, amountBTC, memo, timestamp, expiration, metadata) values(?,?,?,?,?,?,?,?,?,?)")
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()
	_, err = stmt.Exec(req.Address, req.URI, int(req.Status), req.StatusString, int64(req.Amount),
		req.AmountBTC, req.Memo, req.Timestamp, req.Expiration, string(meta))
	if err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (r *RequestsDB) Get(address string) (*wallet.PaymentRequest, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	stmt, err := r.db.Prepare("select address, uri, status, statusString, amount, amountBTC, memo, timestamp, expiration, metadata from requests where address=?")
	if err != nil {
		return nil, err
	}
	defer stmt.Close()
	req, err := scanRequest(stmt.QueryRow(address))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, wallet.ErrRequestNotFound
	}
	return req, err
}

func (r *RequestsDB) GetAll() ([]*wallet.PaymentRequest, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	var ret []*wallet.PaymentRequest
	stm := "select address, uri, status, statusString, amount, amountBTC, memo, timestamp, expiration, metadata from requests order by timestamp desc"
	rows, err := r.db.Query(stm)
	if err != nil {
		return ret, err
	}
	defer rows.Close()
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return ret, err
		}
		ret = append(ret, req)
	}
	return ret, rows.Err()
}

func (r *RequestsDB) UpdateStatus(address string, status wallet.PaymentStatus, statusString string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	res, err := r.db.Exec("update requests set status=?, statusString=? where address=?", int(status), statusString, address)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return wallet.ErrRequestNotFound
	}
	return nil
}

func (r *RequestsDB) UpdateMetadata(address string, metadata map[string]string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	var meta []byte
	if len(metadata) > 0 {
		var err error
		meta, err = json.Marshal(metadata)
		if err != nil {
			return err
		}
	}
	res, err := r.db.Exec("update requests set metadata=? where address=?", string(meta), address)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return wallet.ErrRequestNotFound
	}
	return nil
}

func (r *RequestsDB) Delete(address string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	_, err := r.db.Exec("delete from requests where address=?", address)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRequest(row scanner) (*wallet.PaymentRequest, error) {
	var (
		req        wallet.PaymentRequest
		status     int
		amount     int64
		metadata   sql.NullString
		uri, memo  sql.NullString
		statusStr  sql.NullString
		amountBTC  sql.NullString
		timestamp  int64
		expiration int64
	)
	err := row.Scan(&req.Address, &uri, &status, &statusStr, &amount, &amountBTC, &memo, &timestamp, &expiration, &metadata)
	if err != nil {
		return nil, err
	}
	req.URI = uri.String
	req.Status = wallet.PaymentStatusFromInt(status)
	req.StatusString = statusStr.String
	req.Amount = btcutil.Amount(amount)
	req.AmountBTC = amountBTC.String
	req.Memo = memo.String
	req.Timestamp = timestamp
	req.Expiration = expiration
	if metadata.String != "" {
		if err = json.Unmarshal([]byte(metadata.String), &req.Metadata); err != nil {
			return nil, err
		}
	}
	return &req, nil
}
