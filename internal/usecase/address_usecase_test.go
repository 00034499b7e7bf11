package usecase_test

import (
	"context"
	"testing"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
	"storefront/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func addressRequest() usecase.AddressRequest {
	return usecase.AddressRequest{
		FullName: "Taro", PhoneNumber: "0900000000", Area: "1-2-3",
		City: "Shibuya", State: "Tokyo", Pincode: "1500001",
	}
}

func TestAddressUsecase_Create_FirstIsDefault(t *testing.T) {
	addresses := new(AddressRepoMock)
	uc := usecase.NewAddressUsecase(addresses)

	addresses.On("CountByUserID", mock.Anything, "u1").Return(int64(0), nil)
	addresses.On("Create", mock.Anything, mock.MatchedBy(func(a model.Address) bool {
		return a.IsDefault && a.UserID == "u1" && a.City == "Shibuya"
	})).Return(model.Address{ID: "a1", UserID: "u1", IsDefault: true}, nil)

	dto, err := uc.Create(context.Background(), "u1", addressRequest())
	assert.NoError(t, err)
	assert.True(t, dto.IsDefault)
	addresses.AssertExpectations(t)
}

func TestAddressUsecase_Create_SecondIsNotDefault(t *testing.T) {
	addresses := new(AddressRepoMock)
	uc := usecase.NewAddressUsecase(addresses)

	addresses.On("CountByUserID", mock.Anything, "u1").Return(int64(1), nil)
	addresses.On("Create", mock.Anything, mock.MatchedBy(func(a model.Address) bool {
		return !a.IsDefault
	})).Return(model.Address{ID: "a2", UserID: "u1"}, nil)

	_, err := uc.Create(context.Background(), "u1", addressRequest())
	assert.NoError(t, err)
	addresses.AssertExpectations(t)
}

func TestAddressUsecase_Create_Validation(t *testing.T) {
	uc := usecase.NewAddressUsecase(new(AddressRepoMock))

	req := addressRequest()
	req.Pincode = " "
	_, err := uc.Create(context.Background(), "u1", req)
	assertErrContains(t, err, "pincode required")
}

func TestAddressUsecase_Update_OtherUsersAddressIsNotFound(t *testing.T) {
	addresses := new(AddressRepoMock)
	uc := usecase.NewAddressUsecase(addresses)
	addresses.On("FindByID", mock.Anything, "a1").Return(model.Address{ID: "a1", UserID: "u2"}, nil)

	_, err := uc.Update(context.Background(), "u1", "a1", addressRequest())
	assert.Equal(t, usecase.ErrNotFound, err)
	addresses.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestAddressUsecase_Delete_ReassignsDefaultToNewest(t *testing.T) {
	addresses := new(AddressRepoMock)
	uc := usecase.NewAddressUsecase(addresses)

	now := time.Now()
	addresses.On("FindByID", mock.Anything, "a1").Return(model.Address{ID: "a1", UserID: "u1", IsDefault: true}, nil)
	addresses.On("Delete", mock.Anything, "a1").Return(nil)
	addresses.On("ListByUserID", mock.Anything, "u1").Return([]model.Address{
		{ID: "a2", UserID: "u1", CreatedAt: now.Add(-time.Hour)},
		{ID: "a3", UserID: "u1", CreatedAt: now},
	}, nil)
	addresses.On("SetDefault", mock.Anything, "u1", "a3").Return(nil)

	err := uc.Delete(context.Background(), "u1", "a1")
	assert.NoError(t, err)
	addresses.AssertExpectations(t)
}

func TestAddressUsecase_Delete_NonDefault(t *testing.T) {
	addresses := new(AddressRepoMock)
	uc := usecase.NewAddressUsecase(addresses)

	addresses.On("FindByID", mock.Anything, "a2").Return(model.Address{ID: "a2", UserID: "u1"}, nil)
	addresses.On("Delete", mock.Anything, "a2").Return(nil)

	assert.NoError(t, uc.Delete(context.Background(), "u1", "a2"))
	addresses.AssertNotCalled(t, "ListByUserID", mock.Anything, mock.Anything)
}

func TestAddressUsecase_SetDefault(t *testing.T) {
	addresses := new(AddressRepoMock)
	uc := usecase.NewAddressUsecase(addresses)

	addresses.On("FindByID", mock.Anything, "a2").Return(model.Address{ID: "a2", UserID: "u1"}, nil)
	addresses.On("SetDefault", mock.Anything, "u1", "a2").Return(nil)

	assert.NoError(t, uc.SetDefault(context.Background(), "u1", "a2"))
	addresses.AssertExpectations(t)
}

func TestAddressUsecase_SetDefault_Missing(t *testing.T) {
	addresses := new(AddressRepoMock)
	uc := usecase.NewAddressUsecase(addresses)
	addresses.On("FindByID", mock.Anything, "a9").Return(model.Address{}, repo.ErrNotFound)

	err := uc.SetDefault(context.Background(), "u1", "a9")
	assert.Equal(t, usecase.ErrNotFound, err)
}
