package repository

import "github.com/Freeeeeet/mentorship_api/internal/repository/base"

// ErrStaleVersion запись изменилась после чтения (compare-and-swap не прошёл)
var ErrStaleVersion = base.ErrStaleVersion
