package intake

import "govdoc/pkg/domain"

// slotAliases maps each logical slot to the classification codes the
// extraction service may return for it. Canonical-slot resolution happens
// here, at the ingestion boundary, never as ad hoc string comparisons at call
// sites.
var slotAliases = map[domain.SlotType][]string{
	domain.SlotIDFront:            {"ci_front", "id_card_front", "eid_front"},
	domain.SlotIDBack:             {"ci_back", "id_card_back", "eid_back"},
	domain.SlotOldFormatID:        {"bi_old", "old_id", "ci_old_format"},
	domain.SlotPassport:           {"passport", "passport_page"},
	domain.SlotResidencePermit:    {"residence_permit", "residence_card"},
	domain.SlotAddressCertificate: {"address_certificate", "residence_certificate"},
}

// CanonicalSlot resolves the canonical slot for a classification code returned
// by the extraction service. A request for one slot may legitimately resolve
// to another: scanning the front of an old-format ID classifies as
// old_format_id, whose fields already include the address normally found only
// on the back. Unknown classifications keep the requested slot.
func CanonicalSlot(requested domain.SlotType, documentType string) domain.SlotType {
	if documentType == "" {
		return requested
	}
	for slot, codes := range slotAliases {
		for _, code := range codes {
			if code == documentType {
				return slot
			}
		}
	}
	return requested
}
