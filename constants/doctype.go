package constants

type DocType string

const (
	License           DocType = "license"
	DegreeCertificate DocType = "degree_certificate"
	Transcript        DocType = "transcript"
	GovernmentID      DocType = "government_id"
	Insurance         DocType = "insurance"
	MedicalForm       DocType = "medical_form"
	Invoice           DocType = "invoice"
	BankStatement     DocType = "bank_statement"
	UtilityBill       DocType = "utility_bill"
	TaxDocument       DocType = "tax_document"
	Other             DocType = "other"
)

var allDocTypes = []DocType{
	License,
	DegreeCertificate,
	Transcript,
	GovernmentID,
	Insurance,
	MedicalForm,
	Invoice,
	BankStatement,
	UtilityBill,
	TaxDocument,
	Other,
}

func DocTypeStrings() []string {
	result := make([]string, len(allDocTypes))
	for i, dt := range allDocTypes {
		result[i] = string(dt)
	}
	return result
}

// IsDocType reports whether input is a member of the closed vocabulary.
func IsDocType(input string) bool {
	for _, dt := range allDocTypes {
		if input == string(dt) {
			return true
		}
	}
	return false
}

