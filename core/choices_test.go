package core

import (
	"context"
	"testing"

	"github.com/stephnangue/fedgate/config"
	"github.com/stephnangue/fedgate/logical"
	"github.com/stretchr/testify/assert"
)

func TestRegionChoices(t *testing.T) {
	c := testCore(t, &fakeBackend{}, &config.KeystoneBlock{
		AuthURL: "https://id.example/v3",
		Regions: []config.RegionBlock{
			{URL: "https://east.example/v3", Label: "East"},
			{URL: "https://west.example/v3", Label: "West"},
		},
	})

	assert.Equal(t, []logical.Choice{
		{Value: "https://east.example/v3", Label: "East"},
		{Value: "https://west.example/v3", Label: "West"},
	}, c.RegionChoices())
}

func TestRegionChoices_DefaultRegion(t *testing.T) {
	c := testCore(t, &fakeBackend{}, &config.KeystoneBlock{
		AuthURL: "https://id.example/v3",
	})

	assert.Equal(t, []logical.Choice{
		{Value: "https://id.example/v3", Label: "Default Region"},
	}, c.RegionChoices())
}

func TestServiceChoices(t *testing.T) {
	server := realmServer(t, "realm-abc", "realm-def")
	c := testCore(t, &fakeBackend{}, &config.KeystoneBlock{
		AuthURL:      "https://id.example/v3",
		FederatedURL: server.URL,
	})

	assert.Equal(t, []logical.Choice{
		{Value: "default", Label: "Default"},
		{Value: "realm-abc", Label: "Realm realm-abc"},
		{Value: "realm-def", Label: "Realm realm-def"},
	}, c.ServiceChoices(context.Background()))
}

func TestServiceChoices_DiscoveryDown(t *testing.T) {
	c := testCore(t, &fakeBackend{}, &config.KeystoneBlock{
		AuthURL:      "https://id.example/v3",
		FederatedURL: "http://127.0.0.1:1/realms",
	})

	// Direct login stays available when discovery is unreachable.
	assert.Equal(t, []logical.Choice{
		{Value: "default", Label: "Default"},
	}, c.ServiceChoices(context.Background()))
}
