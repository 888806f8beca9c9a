package config

import (
	"testing"

	"github.com/iox2go/iox2"
	"github.com/stretchr/testify/assert"
)

func u32(v uint32) *uint32 { return &v }
func b(v bool) *bool       { return &v }

func sampleStatic() StaticConfig {
	return StaticConfig{
		ServiceName:                  "demo",
		Pattern:                      iox2.MessagingPatternPublishSubscribe,
		Payload:                      iox2.TypeDetail{Variant: iox2.TypeVariantFixedSize, TypeName: "u64", Size: 8, Alignment: 8},
		MaxPublishers:                4,
		MaxSubscribers:               8,
		MaxNodes:                     4,
		HistorySize:                  2,
		SubscriberMaxBufferSize:      4,
		SubscriberMaxBorrowedSamples: 2,
		EnableSafeOverflow:           true,
		Attributes:                   AttributeSet{"region": "eu"},
	}
}

// Property 2: opener requirements <= creation values and
// matching payload descriptors succeed.
func TestVerifySucceedsWhenRequirementsAreLowerOrEqual(t *testing.T) {
	stored := sampleStatic()
	req := Requirements{
		MaxPublishers:  u32(2),
		MaxSubscribers: u32(4),
		HistorySize:    u32(2),
	}
	assert.NoError(t, Verify(stored, req))
}

func TestVerifyFailsOnTooHighRequirement(t *testing.T) {
	stored := sampleStatic()
	assert.ErrorIs(t, Verify(stored, Requirements{MaxPublishers: u32(5)}), ErrDoesNotSupportRequestedMaxPublishers)
	assert.ErrorIs(t, Verify(stored, Requirements{MaxSubscribers: u32(9)}), ErrDoesNotSupportRequestedMaxSubscribers)
	assert.ErrorIs(t, Verify(stored, Requirements{MaxNodes: u32(5)}), ErrDoesNotSupportRequestedMaxNodes)
	assert.ErrorIs(t, Verify(stored, Requirements{HistorySize: u32(3)}), ErrDoesNotSupportRequestedHistorySize)
	assert.ErrorIs(t, Verify(stored, Requirements{SubscriberMaxBufferSize: u32(5)}), ErrDoesNotSupportRequestedSubscriberMaxBufferSize)
	assert.ErrorIs(t, Verify(stored, Requirements{SubscriberMaxBorrowedSamples: u32(3)}), ErrDoesNotSupportRequestedSubscriberMaxBorrowedSamples)
}

func TestVerifyOverflowMustMatchExactly(t *testing.T) {
	stored := sampleStatic()
	assert.ErrorIs(t, Verify(stored, Requirements{EnableSafeOverflow: b(false)}), ErrIncompatibleOverflowSetting)
	assert.NoError(t, Verify(stored, Requirements{EnableSafeOverflow: b(true)}))
}

// Scenario S7
func TestVerifyMismatchedTypes(t *testing.T) {
	stored := sampleStatic()
	i64 := iox2.TypeDetail{Variant: iox2.TypeVariantFixedSize, TypeName: "i64", Size: 8, Alignment: 8}
	assert.ErrorIs(t, Verify(stored, Requirements{Payload: &i64}), ErrIncompatibleTypes)

	slice := iox2.TypeDetail{Variant: iox2.TypeVariantDynamic, TypeName: "u64", Size: 8, Alignment: 8}
	assert.ErrorIs(t, Verify(stored, Requirements{Payload: &slice}), ErrIncompatibleTypes)
}

func TestVerifyAlignmentMayBeStricterThanRequested(t *testing.T) {
	stored := sampleStatic()
	stored.Payload.Alignment = 16
	weaker := iox2.TypeDetail{Variant: iox2.TypeVariantFixedSize, TypeName: "u64", Size: 8, Alignment: 8}
	assert.NoError(t, Verify(stored, Requirements{Payload: &weaker}))

	stronger := iox2.TypeDetail{Variant: iox2.TypeVariantFixedSize, TypeName: "u64", Size: 8, Alignment: 32}
	assert.ErrorIs(t, Verify(stored, Requirements{Payload: &stronger}), ErrIncompatibleTypes)
}

func TestVerifyAttributes(t *testing.T) {
	stored := sampleStatic()
	v := NewAttributeVerifier().Require("region", "eu")
	assert.NoError(t, Verify(stored, Requirements{Attributes: v}))

	v2 := NewAttributeVerifier().Require("region", "us")
	assert.ErrorIs(t, Verify(stored, Requirements{Attributes: v2}), ErrIncompatibleAttributes)
}

func TestVerifyIgnoresUnsetRequirements(t *testing.T) {
	stored := sampleStatic()
	assert.NoError(t, Verify(stored, Requirements{}))
}

func TestAdjustToSaneValuesPromotesZero(t *testing.T) {
	cfg := StaticConfig{}
	assert.NoError(t, cfg.AdjustToSaneValues(nil))
	assert.EqualValues(t, 1, cfg.MaxPublishers)
	assert.EqualValues(t, 1, cfg.MaxSubscribers)
	assert.EqualValues(t, 1, cfg.MaxNodes)
	assert.EqualValues(t, 1, cfg.HistorySize)
	assert.EqualValues(t, 1, cfg.SubscriberMaxBufferSize)
	assert.EqualValues(t, 1, cfg.SubscriberMaxBorrowedSamples)
	assert.EqualValues(t, 1, cfg.PublisherMaxLoanedSamples)
}

func TestAdjustToSaneValuesRejectsBufferSmallerThanHistory(t *testing.T) {
	cfg := StaticConfig{
		MaxPublishers: 1, MaxSubscribers: 1, MaxNodes: 1,
		HistorySize: 4, SubscriberMaxBufferSize: 2,
		SubscriberMaxBorrowedSamples: 1, PublisherMaxLoanedSamples: 1,
		EnableSafeOverflow: false,
	}
	assert.ErrorIs(t, cfg.AdjustToSaneValues(nil), ErrSubscriberBufferMustBeLargerThanHistorySize)
}

func TestAdjustToSaneValuesAllowsSmallBufferWithOverflow(t *testing.T) {
	cfg := StaticConfig{
		MaxPublishers: 1, MaxSubscribers: 1, MaxNodes: 1,
		HistorySize: 4, SubscriberMaxBufferSize: 2,
		SubscriberMaxBorrowedSamples: 1, PublisherMaxLoanedSamples: 1,
		EnableSafeOverflow: true,
	}
	assert.NoError(t, cfg.AdjustToSaneValues(nil))
}
