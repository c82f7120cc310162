package httptransport

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"skimvault/internal/bridge"
	"skimvault/internal/transport/http/mocks"
	"skimvault/internal/vault"
	"skimvault/pkg/domain"
	dErrors "skimvault/pkg/domain-errors"
	"skimvault/pkg/testutil"
)

const (
	depositorAddr = "inj1zyg3zyg3zyg3zyg3zyg3zyg3zyg3zyg3t5qxqh"
	managerAddr   = "inj1zut3w9chzut3w9chzut3w9chzut3w9ch25xzd2"
)

func TestVaultHandler_Deposit(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockVaultService(ctrl)
	rc := vault.Receipt{Action: "deposit", Attributes: []vault.Attribute{{Key: "amount", Value: "250"}}}
	svc.EXPECT().Deposit(gomock.Any(), domain.Address(depositorAddr), domain.NewAmount(250)).Return(rc, nil)

	w := serve(t, NewVaultHandler(svc, quietLogger()).Register, depositorAddr,
		http.MethodPost, "/vault/deposit", map[string]string{"amount": "250"})

	require.Equal(t, http.StatusOK, w.Code)
	var got vault.Receipt
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	v, ok := got.Attr("amount")
	assert.True(t, ok)
	assert.Equal(t, "250", v)
}

func TestVaultHandler_Skim(t *testing.T) {
	t.Run("no yield maps to 422", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		svc := mocks.NewMockVaultService(ctrl)
		svc.EXPECT().SkimYield(gomock.Any(), domain.Address(managerAddr)).
			Return(vault.Receipt{}, dErrors.New(dErrors.CodeNoYieldAvailable, "no yield available"))

		w := serve(t, NewVaultHandler(svc, quietLogger()).Register, managerAddr,
			http.MethodPost, "/vault/skim", nil)

		testutil.AssertError(t, w, http.StatusUnprocessableEntity, string(dErrors.CodeNoYieldAvailable))
	})

	t.Run("stranger is unauthorized", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		svc := mocks.NewMockVaultService(ctrl)
		svc.EXPECT().SkimYield(gomock.Any(), domain.Address("nobody")).
			Return(vault.Receipt{}, dErrors.New(dErrors.CodeUnauthorized, "caller may not skim"))

		w := serve(t, NewVaultHandler(svc, quietLogger()).Register, "nobody",
			http.MethodPost, "/vault/skim", nil)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestVaultHandler_Remote(t *testing.T) {
	t.Run("builds the action from the flat body", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		svc := mocks.NewMockVaultService(ctrl)
		want := bridge.ForwardSkim{Recipient: "collector-principal"}
		svc.EXPECT().ExecuteFromRemote(gomock.Any(), domain.Address(managerAddr), want).
			Return(vault.Receipt{Action: "skim_yield"}, nil)

		w := serve(t, NewVaultHandler(svc, quietLogger()).Register, managerAddr,
			http.MethodPost, "/vault/remote", map[string]string{
				"action_tag": string(bridge.TagForwardSkim),
				"recipient":  "collector-principal",
			})

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("unknown tag is a bad request", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		svc := mocks.NewMockVaultService(ctrl)

		w := serve(t, NewVaultHandler(svc, quietLogger()).Register, managerAddr,
			http.MethodPost, "/vault/remote", map[string]string{"action_tag": "Liquidate"})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, string(dErrors.CodeBadRequest), decodeError(t, w))
	})
}

func TestVaultHandler_Manager(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockVaultService(ctrl)
	svc.EXPECT().SetRemoteManager(gomock.Any(), domain.Address(managerAddr), domain.Address(depositorAddr)).Return(nil)
	svc.EXPECT().RemoteManager(gomock.Any()).Return(domain.Address(depositorAddr), nil)
	h := NewVaultHandler(svc, quietLogger())

	w := serve(t, h.Register, managerAddr, http.MethodPost, "/vault/manager", map[string]string{"next": depositorAddr})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = serve(t, h.Register, managerAddr, http.MethodGet, "/vault/manager", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got managerResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, domain.Address(depositorAddr), got.Manager)
}

func TestVaultHandler_Queries(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockVaultService(ctrl)
	svc.EXPECT().Principal(gomock.Any(), domain.Address(depositorAddr)).Return(domain.NewAmount(900), nil)
	svc.EXPECT().TotalPrincipal(gomock.Any()).Return(domain.NewAmount(1_200), nil)
	svc.EXPECT().AssetBalance(gomock.Any()).Return(domain.NewAmount(1_260), nil)
	svc.EXPECT().ContractVersion(gomock.Any()).Return(vault.ContractInfo{Name: vault.ContractName, Version: vault.ContractVersion}, nil)
	svc.EXPECT().Config(gomock.Any()).Return(vault.Config{}, dErrors.New(dErrors.CodeConflict, "vault is not instantiated"))
	h := NewVaultHandler(svc, quietLogger())

	cases := []struct {
		target string
		want   uint64
	}{
		{"/vault/principal/" + depositorAddr, 900},
		{"/vault/total-principal", 1_200},
		{"/vault/asset-balance", 1_260},
	}
	for _, tc := range cases {
		w := serve(t, h.Register, managerAddr, http.MethodGet, tc.target, nil)
		require.Equal(t, http.StatusOK, w.Code, tc.target)
		var got amountResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
		assert.Equal(t, domain.NewAmount(tc.want), got.Amount, tc.target)
	}

	w := serve(t, h.Register, managerAddr, http.MethodGet, "/vault/version", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var info vault.ContractInfo
	require.NoError(t, json.NewDecoder(w.Body).Decode(&info))
	assert.Equal(t, vault.ContractVersion, info.Version)

	w = serve(t, h.Register, managerAddr, http.MethodGet, "/vault/config", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}
