package models

import "errors"

var ErrPriceRangeInverted = errors.New("price_max must not be below price_min")
