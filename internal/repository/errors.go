package repository

import "errors"

var (
	// 対象がない
	ErrNotFound = errors.New("not found")
	// 一意キーの重複、または条件付き更新の前提が崩れた
	ErrConflict = errors.New("conflict")
	// ストアに接続できない・タイムアウトした
	ErrUnavailable = errors.New("store unavailable")
)
