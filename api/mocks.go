// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package api

import (
	"errors"
	"sync"
	"time"

	"github.com/holiman/uint256"

	"github.com/ava-labs/movevm/types"
)

// UnbondingPeriod is added to the block time by MockAPI.UnbondTimestamp.
const UnbondingPeriod = 7 * 24 * time.Hour

var (
	ErrValidatorNotFound = errors.New("validator not found")
	ErrMetadataNotFound  = errors.New("metadata not found")
	ErrPairNotFound      = errors.New("pair not found")
	ErrQueryUnsupported  = errors.New("query not supported")
)

var _ types.GoAPI = (*MockAPI)(nil)

// MockAPI is an in-memory chain API for tests and local runs.
type MockAPI struct {
	AccountAPI *MockAccountAPI
	StakingAPI *MockStakingAPI
	OracleAPI  *MockOracleAPI
	// BlockTime is in seconds.
	BlockTime uint64

	// QueryHandler answers Query. When nil, Query fails.
	QueryHandler func(request []byte, gasBalance uint64) ([]byte, uint64, error)
}

func NewMockAPI(blockTime uint64, accountAPI *MockAccountAPI, stakingAPI *MockStakingAPI, oracleAPI *MockOracleAPI) *MockAPI {
	return &MockAPI{
		AccountAPI: accountAPI,
		StakingAPI: stakingAPI,
		OracleAPI:  oracleAPI,
		BlockTime:  blockTime,
	}
}

func NewEmptyMockAPI(blockTime uint64) *MockAPI {
	return NewMockAPI(blockTime, NewMockAccountAPI(), NewMockStakingAPI(), NewMockOracleAPI())
}

func (m *MockAPI) Query(request []byte, gasBalance uint64) ([]byte, uint64, error) {
	if m.QueryHandler == nil {
		return nil, 0, ErrQueryUnsupported
	}
	return m.QueryHandler(request, gasBalance)
}

func (m *MockAPI) GetAccountInfo(addr types.AccountAddress) (types.AccountInfo, bool, error) {
	info, ok := m.AccountAPI.GetAccountInfo(addr)
	return info, ok, nil
}

func (m *MockAPI) AmountToShare(validator []byte, denom string, amount uint64) (uint64, error) {
	return m.StakingAPI.AmountToShare(validator, denom, amount)
}

func (m *MockAPI) ShareToAmount(validator []byte, denom string, share uint64) (uint64, error) {
	return m.StakingAPI.ShareToAmount(validator, denom, share)
}

func (m *MockAPI) UnbondTimestamp() (uint64, error) {
	return m.BlockTime + uint64(UnbondingPeriod/time.Second), nil
}

func (m *MockAPI) GetPrice(pairID string) ([]byte, uint64, uint64, error) {
	return m.OracleAPI.GetPrice(pairID)
}

type MockAccountAPI struct {
	lock     sync.RWMutex
	accounts map[types.AccountAddress]types.AccountInfo
}

func NewMockAccountAPI() *MockAccountAPI {
	return &MockAccountAPI{accounts: map[types.AccountAddress]types.AccountInfo{}}
}

func (m *MockAccountAPI) SetAccountInfo(addr types.AccountAddress, info types.AccountInfo) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.accounts[addr] = info
}

func (m *MockAccountAPI) GetAccountInfo(addr types.AccountAddress) (types.AccountInfo, bool) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	info, ok := m.accounts[addr]
	return info, ok
}

// shareRatio is share/amount.
type shareRatio struct {
	share  uint64
	amount uint64
}

type MockStakingAPI struct {
	lock       sync.RWMutex
	validators map[string]map[string]shareRatio
}

func NewMockStakingAPI() *MockStakingAPI {
	return &MockStakingAPI{validators: map[string]map[string]shareRatio{}}
}

// SetShareRatio sets how many shares of [validator] [amount] units of
// [denom] are worth.
func (m *MockStakingAPI) SetShareRatio(validator []byte, denom string, share, amount uint64) {
	m.lock.Lock()
	defer m.lock.Unlock()

	ratios, ok := m.validators[string(validator)]
	if !ok {
		ratios = map[string]shareRatio{}
		m.validators[string(validator)] = ratios
	}
	ratios[denom] = shareRatio{share: share, amount: amount}
}

func (m *MockStakingAPI) ratio(validator []byte, denom string) (shareRatio, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	ratios, ok := m.validators[string(validator)]
	if !ok {
		return shareRatio{}, ErrValidatorNotFound
	}
	r, ok := ratios[denom]
	if !ok || r.share == 0 || r.amount == 0 {
		return shareRatio{}, ErrMetadataNotFound
	}
	return r, nil
}

func (m *MockStakingAPI) AmountToShare(validator []byte, denom string, amount uint64) (uint64, error) {
	r, err := m.ratio(validator, denom)
	if err != nil {
		return 0, err
	}
	return mulDiv(amount, r.share, r.amount), nil
}

func (m *MockStakingAPI) ShareToAmount(validator []byte, denom string, share uint64) (uint64, error) {
	r, err := m.ratio(validator, denom)
	if err != nil {
		return 0, err
	}
	return mulDiv(share, r.amount, r.share), nil
}

// mulDiv computes a*b/c without intermediate overflow, saturating at the
// maximum uint64.
func mulDiv(a, b, c uint64) uint64 {
	r := new(uint256.Int).Mul(uint256.NewInt(a), uint256.NewInt(b))
	r.Div(r, uint256.NewInt(c))
	if !r.IsUint64() {
		return ^uint64(0)
	}
	return r.Uint64()
}

type price struct {
	value     uint64
	updatedAt uint64
	decimals  uint64
}

type MockOracleAPI struct {
	lock   sync.RWMutex
	prices map[string]price
}

func NewMockOracleAPI() *MockOracleAPI {
	return &MockOracleAPI{prices: map[string]price{}}
}

func (m *MockOracleAPI) SetPrice(pairID string, value, updatedAt, decimals uint64) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.prices[pairID] = price{value: value, updatedAt: updatedAt, decimals: decimals}
}

// GetPrice returns the price as a little endian uint256.
func (m *MockOracleAPI) GetPrice(pairID string) ([]byte, uint64, uint64, error) {
	m.lock.RLock()
	p, ok := m.prices[pairID]
	m.lock.RUnlock()
	if !ok {
		return nil, 0, 0, ErrPairNotFound
	}
	return types.SerializeUint256(uint256.NewInt(p.value)), p.updatedAt, p.decimals, nil
}
