package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/iox2go/iox2"
	"gopkg.in/ini.v1"
)

// staticConfigFormatVersion is bumped whenever a field is added, removed or
// reinterpreted in a way old readers could misparse. Readers only reject a
// file outright if its version is newer than this one; unknown keys within
// a known version are ignored.
const staticConfigFormatVersion = 1

// EncodeStaticConfig renders a StaticConfig into the ini-based file format
// committed to the service directory: one section per
// descriptor, unknown keys ignored on read, a version key for
// forward/backward compatibility.
func EncodeStaticConfig(c StaticConfig) ([]byte, error) {
	f := ini.Empty()

	meta, err := f.NewSection("meta")
	if err != nil {
		return nil, err
	}
	meta.NewKey("version", strconv.Itoa(staticConfigFormatVersion))

	svc, err := f.NewSection("service")
	if err != nil {
		return nil, err
	}
	svc.NewKey("name", c.ServiceName)
	svc.NewKey("messaging_pattern", c.Pattern.String())
	svc.NewKey("max_publishers", strconv.FormatUint(uint64(c.MaxPublishers), 10))
	svc.NewKey("max_subscribers", strconv.FormatUint(uint64(c.MaxSubscribers), 10))
	svc.NewKey("max_nodes", strconv.FormatUint(uint64(c.MaxNodes), 10))
	svc.NewKey("history_size", strconv.FormatUint(uint64(c.HistorySize), 10))
	svc.NewKey("subscriber_max_buffer_size", strconv.FormatUint(uint64(c.SubscriberMaxBufferSize), 10))
	svc.NewKey("subscriber_max_borrowed_samples", strconv.FormatUint(uint64(c.SubscriberMaxBorrowedSamples), 10))
	svc.NewKey("publisher_max_loaned_samples", strconv.FormatUint(uint64(c.PublisherMaxLoanedSamples), 10))
	svc.NewKey("enable_safe_overflow", strconv.FormatBool(c.EnableSafeOverflow))

	writeTypeSection(f, "payload", c.Payload)
	writeTypeSection(f, "header", c.UserHeader)

	attrs, err := f.NewSection("attributes")
	if err != nil {
		return nil, err
	}
	for k, v := range c.Attributes {
		attrs.NewKey(k, v)
	}

	var sb strings.Builder
	if _, err := f.WriteTo(&sb); err != nil {
		return nil, err
	}
	return []byte(sb.String()), nil
}

func writeTypeSection(f *ini.File, name string, t iox2.TypeDetail) {
	sec, _ := f.NewSection(name)
	variant := "fixed-size"
	if t.Variant == iox2.TypeVariantDynamic {
		variant = "dynamic"
	}
	sec.NewKey("variant", variant)
	sec.NewKey("type_name", t.TypeName)
	sec.NewKey("size", strconv.FormatUint(t.Size, 10))
	sec.NewKey("alignment", strconv.FormatUint(t.Alignment, 10))
}

// DecodeStaticConfig parses a static config file written by
// EncodeStaticConfig. A version newer than staticConfigFormatVersion is
// rejected since this reader cannot know what it means; unknown keys
// within a supported version are silently ignored.
func DecodeStaticConfig(data []byte) (StaticConfig, error) {
	f, err := ini.Load(data)
	if err != nil {
		return StaticConfig{}, fmt.Errorf("config: parse static config: %w", err)
	}

	version, err := f.Section("meta").Key("version").Int()
	if err != nil {
		return StaticConfig{}, fmt.Errorf("config: missing or invalid meta.version: %w", err)
	}
	if version > staticConfigFormatVersion {
		return StaticConfig{}, fmt.Errorf("config: static config format version %d is newer than supported %d", version, staticConfigFormatVersion)
	}

	svc := f.Section("service")
	c := StaticConfig{
		ServiceName: svc.Key("name").String(),
		Attributes:  NewAttributeSet(),
	}
	switch svc.Key("messaging_pattern").String() {
	case "event":
		c.Pattern = iox2.MessagingPatternEvent
	case "request-response":
		c.Pattern = iox2.MessagingPatternRequestResponse
	case "blackboard":
		c.Pattern = iox2.MessagingPatternBlackboard
	default:
		c.Pattern = iox2.MessagingPatternPublishSubscribe
	}

	var perr error
	u32 := func(key string) uint32 {
		v, err := svc.Key(key).Uint()
		if err != nil && perr == nil {
			perr = fmt.Errorf("config: invalid %s: %w", key, err)
		}
		return uint32(v)
	}
	c.MaxPublishers = u32("max_publishers")
	c.MaxSubscribers = u32("max_subscribers")
	c.MaxNodes = u32("max_nodes")
	c.HistorySize = u32("history_size")
	c.SubscriberMaxBufferSize = u32("subscriber_max_buffer_size")
	c.SubscriberMaxBorrowedSamples = u32("subscriber_max_borrowed_samples")
	c.PublisherMaxLoanedSamples = u32("publisher_max_loaned_samples")
	if perr != nil {
		return StaticConfig{}, perr
	}

	c.EnableSafeOverflow, err = svc.Key("enable_safe_overflow").Bool()
	if err != nil {
		return StaticConfig{}, fmt.Errorf("config: invalid enable_safe_overflow: %w", err)
	}

	c.Payload, err = readTypeSection(f, "payload")
	if err != nil {
		return StaticConfig{}, err
	}
	c.UserHeader, err = readTypeSection(f, "header")
	if err != nil {
		return StaticConfig{}, err
	}

	if attrs, err := f.GetSection("attributes"); err == nil {
		for _, k := range attrs.Keys() {
			c.Attributes[k.Name()] = k.Value()
		}
	}

	return c, nil
}

func readTypeSection(f *ini.File, name string) (iox2.TypeDetail, error) {
	sec, err := f.GetSection(name)
	if err != nil {
		return iox2.TypeDetail{}, fmt.Errorf("config: missing [%s] section: %w", name, err)
	}
	t := iox2.TypeDetail{TypeName: sec.Key("type_name").String()}
	if sec.Key("variant").String() == "dynamic" {
		t.Variant = iox2.TypeVariantDynamic
	}
	size, err := sec.Key("size").Uint64()
	if err != nil {
		return iox2.TypeDetail{}, fmt.Errorf("config: invalid %s.size: %w", name, err)
	}
	t.Size = size
	alignment, err := sec.Key("alignment").Uint64()
	if err != nil {
		return iox2.TypeDetail{}, fmt.Errorf("config: invalid %s.alignment: %w", name, err)
	}
	t.Alignment = alignment
	return t, nil
}
