package calendar

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Private extended-property keys shared between create and sync.
const (
	metaCustomerName  = "customer_name"
	metaCustomerPhone = "customer_phone"
	metaService       = "service"
	metaSpecialist    = "specialist"
	metaPrice         = "price"
	metaDuration      = "duration"
)

var (
	descCustomerRe   = regexp.MustCompile(`Customer:\s*(.*)`)
	descPhoneRe      = regexp.MustCompile(`Phone:\s*([+\d\-() ]+)`)
	descServiceRe    = regexp.MustCompile(`Service:\s*(.*)`)
	descSpecialistRe = regexp.MustCompile(`Specialist:\s*(.*)`)
	descPriceRe      = regexp.MustCompile(`Price:\s*\$?([\d.]+)`)
	descDurationRe   = regexp.MustCompile(`Duration:\s*(\d+) minutes`)
)

// metadataToProperties flattens metadata into the private property map
// written onto the event.
func metadataToProperties(m EventMetadata) map[string]string {
	props := map[string]string{
		metaCustomerName:  m.CustomerName,
		metaCustomerPhone: m.CustomerPhone,
		metaService:       m.Service,
		metaSpecialist:    m.Specialist,
	}
	if m.Price != nil {
		props[metaPrice] = strconv.FormatFloat(*m.Price, 'f', -1, 64)
	}
	if m.Duration != nil {
		props[metaDuration] = strconv.Itoa(*m.Duration)
	}
	return props
}

// ParseEventMetadata recovers appointment details from an event. Structured
// extended properties are the primary channel; the free-text description is a
// best-effort fallback that overrides whatever it successfully matches, since
// staff edit descriptions by hand. Fields found in neither stay unset.
func ParseEventMetadata(properties map[string]string, description string) EventMetadata {
	var m EventMetadata

	m.CustomerName = properties[metaCustomerName]
	m.CustomerPhone = properties[metaCustomerPhone]
	m.Service = properties[metaService]
	m.Specialist = properties[metaSpecialist]
	if raw, ok := properties[metaPrice]; ok {
		if price, err := strconv.ParseFloat(raw, 64); err == nil {
			m.Price = &price
		}
	}
	if raw, ok := properties[metaDuration]; ok {
		if duration, err := strconv.Atoi(raw); err == nil {
			m.Duration = &duration
		}
	}

	if description == "" {
		return m
	}
	if match := descCustomerRe.FindStringSubmatch(description); match != nil {
		if v := strings.TrimSpace(match[1]); v != "" {
			m.CustomerName = v
		}
	}
	if match := descPhoneRe.FindStringSubmatch(description); match != nil {
		if v := strings.TrimSpace(match[1]); v != "" {
			m.CustomerPhone = v
		}
	}
	if match := descServiceRe.FindStringSubmatch(description); match != nil {
		if v := strings.TrimSpace(match[1]); v != "" {
			m.Service = v
		}
	}
	if match := descSpecialistRe.FindStringSubmatch(description); match != nil {
		if v := strings.TrimSpace(match[1]); v != "" {
			m.Specialist = v
		}
	}
	if match := descPriceRe.FindStringSubmatch(description); match != nil {
		if price, err := strconv.ParseFloat(match[1], 64); err == nil {
			m.Price = &price
		}
	}
	if match := descDurationRe.FindStringSubmatch(description); match != nil {
		if duration, err := strconv.Atoi(match[1]); err == nil {
			m.Duration = &duration
		}
	}
	return m
}

// BuildDescription renders the human-readable event body shown to staff in
// the calendar UI. ParseEventMetadata can read it back.
func BuildDescription(m EventMetadata) string {
	var b strings.Builder
	b.WriteString("Radiance MD Med Spa Appointment\n\n")
	fmt.Fprintf(&b, "Customer: %s\n", m.CustomerName)
	fmt.Fprintf(&b, "Phone: %s\n", m.CustomerPhone)
	fmt.Fprintf(&b, "Service: %s\n", m.Service)
	fmt.Fprintf(&b, "Specialist: %s\n", m.Specialist)
	if m.Price != nil {
		fmt.Fprintf(&b, "Price: $%s\n", strconv.FormatFloat(*m.Price, 'f', -1, 64))
	}
	if m.Duration != nil {
		fmt.Fprintf(&b, "Duration: %d minutes\n", *m.Duration)
	}
	b.WriteString("\nBooked via AI Assistant")
	return b.String()
}
