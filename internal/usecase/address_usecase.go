package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/google/uuid"
)

type AddressDTO struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	FullName    string `json:"full_name"`
	PhoneNumber string `json:"phone_number"`
	Area        string `json:"area"`
	City        string `json:"city"`
	State       string `json:"state"`
	Pincode     string `json:"pincode"`
	IsDefault   bool   `json:"is_default"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// 作成・更新で同じ項目を受け取る
type AddressRequest struct {
	FullName    string `json:"full_name"`
	PhoneNumber string `json:"phone_number"`
	Area        string `json:"area"`
	City        string `json:"city"`
	State       string `json:"state"`
	Pincode     string `json:"pincode"`
}

func (r AddressRequest) validate() error {
	switch {
	case strings.TrimSpace(r.FullName) == "":
		return ValidationFailed("full_name required")
	case strings.TrimSpace(r.PhoneNumber) == "":
		return ValidationFailed("phone_number required")
	case strings.TrimSpace(r.Area) == "":
		return ValidationFailed("area required")
	case strings.TrimSpace(r.City) == "":
		return ValidationFailed("city required")
	case strings.TrimSpace(r.State) == "":
		return ValidationFailed("state required")
	case strings.TrimSpace(r.Pincode) == "":
		return ValidationFailed("pincode required")
	}
	return nil
}

type AddressUsecase struct {
	addresses repo.AddressRepository
}

func NewAddressUsecase(addresses repo.AddressRepository) *AddressUsecase {
	return &AddressUsecase{addresses: addresses}
}

func (u *AddressUsecase) List(ctx context.Context, userID string) ([]AddressDTO, error) {
	if userID == "" {
		return nil, ErrAuthenticationRequired
	}

	list, err := u.addresses.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fromRepoErr(err)
	}

	out := make([]AddressDTO, 0, len(list))
	for i := range list {
		out = append(out, toAddressDTO(&list[i]))
	}
	return out, nil
}

// 最初の住所は自動でデフォルトになる
func (u *AddressUsecase) Create(ctx context.Context, userID string, req AddressRequest) (AddressDTO, error) {
	if userID == "" {
		return AddressDTO{}, ErrAuthenticationRequired
	}
	if err := req.validate(); err != nil {
		return AddressDTO{}, err
	}

	n, err := u.addresses.CountByUserID(ctx, userID)
	if err != nil {
		return AddressDTO{}, fromRepoErr(err)
	}

	now := time.Now()
	a := model.Address{
		ID:          uuid.NewString(),
		UserID:      userID,
		FullName:    strings.TrimSpace(req.FullName),
		PhoneNumber: strings.TrimSpace(req.PhoneNumber),
		Area:        strings.TrimSpace(req.Area),
		City:        strings.TrimSpace(req.City),
		State:       strings.TrimSpace(req.State),
		Pincode:     strings.TrimSpace(req.Pincode),
		IsDefault:   n == 0,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	created, err := u.addresses.Create(ctx, a)
	if err != nil {
		return AddressDTO{}, fromRepoErr(err)
	}
	return toAddressDTO(&created), nil
}

// 本人の住所だけ。他人の住所は404
func (u *AddressUsecase) owned(ctx context.Context, userID, addressID string) (model.Address, error) {
	if userID == "" {
		return model.Address{}, ErrAuthenticationRequired
	}
	if strings.TrimSpace(addressID) == "" {
		return model.Address{}, ValidationFailed("invalid address id")
	}
	a, err := u.addresses.FindByID(ctx, addressID)
	if err != nil {
		return model.Address{}, fromRepoErr(err)
	}
	if a.UserID != userID {
		return model.Address{}, ErrNotFound
	}
	return a, nil
}

func (u *AddressUsecase) Update(ctx context.Context, userID string, addressID string, req AddressRequest) (AddressDTO, error) {
	a, err := u.owned(ctx, userID, addressID)
	if err != nil {
		return AddressDTO{}, err
	}
	if err := req.validate(); err != nil {
		return AddressDTO{}, err
	}

	a.FullName = strings.TrimSpace(req.FullName)
	a.PhoneNumber = strings.TrimSpace(req.PhoneNumber)
	a.Area = strings.TrimSpace(req.Area)
	a.City = strings.TrimSpace(req.City)
	a.State = strings.TrimSpace(req.State)
	a.Pincode = strings.TrimSpace(req.Pincode)
	a.UpdatedAt = time.Now()

	if err := u.addresses.Update(ctx, a); err != nil {
		return AddressDTO{}, fromRepoErr(err)
	}
	return toAddressDTO(&a), nil
}

// デフォルトを消したら一番新しい住所をデフォルトにする
func (u *AddressUsecase) Delete(ctx context.Context, userID string, addressID string) error {
	a, err := u.owned(ctx, userID, addressID)
	if err != nil {
		return err
	}
	if err := u.addresses.Delete(ctx, addressID); err != nil {
		return fromRepoErr(err)
	}
	if !a.IsDefault {
		return nil
	}

	rest, err := u.addresses.ListByUserID(ctx, userID)
	if err != nil || len(rest) == 0 {
		if err != nil {
			slog.Warn("default address not reassigned", slog.String("user_id", userID), slog.String("error", err.Error()))
		}
		return nil
	}
	newest := rest[0]
	for _, r := range rest[1:] {
		if r.CreatedAt.After(newest.CreatedAt) {
			newest = r
		}
	}
	if err := u.addresses.SetDefault(ctx, userID, newest.ID); err != nil && !errors.Is(err, repo.ErrNotFound) {
		slog.Warn("default address not reassigned", slog.String("user_id", userID), slog.String("error", err.Error()))
	}
	return nil
}

func (u *AddressUsecase) SetDefault(ctx context.Context, userID string, addressID string) error {
	if _, err := u.owned(ctx, userID, addressID); err != nil {
		return err
	}

	//user内でdefaultは1つ
	if err := u.addresses.SetDefault(ctx, userID, addressID); err != nil {
		return fromRepoErr(err)
	}
	return nil
}

func toAddressDTO(a *model.Address) AddressDTO {
	return AddressDTO{
		ID:          a.ID,
		UserID:      a.UserID,
		FullName:    a.FullName,
		PhoneNumber: a.PhoneNumber,
		Area:        a.Area,
		City:        a.City,
		State:       a.State,
		Pincode:     a.Pincode,
		IsDefault:   a.IsDefault,
		CreatedAt:   a.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   a.UpdatedAt.Format(time.RFC3339),
	}
}
