package calculator

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/pricewatch/competitor-price-watcher/internal/models"
)

// Randomized input categories as configured in domain steps.
const (
	RandomFirstName   = "First Name"
	RandomLastName    = "Last Name"
	RandomEmail       = "Email Address"
	RandomStreet      = "Street"
	RandomCity        = "City"
	RandomPhone       = "Phone Number"
	RandomPostalCode  = "Postal Code"
	RandomHouseNumber = "House Number"
	RandomPassword    = "Password"
	RandomGenericTerm = "Generic Term"
)

// Configurator sites are mostly Dutch and German shops, so the pools mix
// both locales.
var (
	firstNames = []string{
		"Hans", "Klaus", "Peter", "Michael", "Wolfgang", "Thomas", "Andreas", "Stefan", "Martin", "Christian",
		"Anna", "Maria", "Ursula", "Monika", "Elisabeth", "Petra", "Sabine", "Andrea", "Claudia", "Susanne",
		"Jan", "Piet", "Klaas", "Willem", "Hendrik", "Sara", "Emma", "Sophie",
	}
	lastNames = []string{
		"Müller", "Schmidt", "Schneider", "Fischer", "Weber", "Meyer", "Wagner", "Becker", "Schulz", "Hoffmann",
		"Jansen", "de Vries", "van den Berg", "Bakker", "Visser", "Meijer", "de Boer", "Mulder", "de Groot", "Bos",
	}
	emailDomains = []string{"gmail.com", "outlook.com", "hotmail.com", "yahoo.com", "protonmail.com", "gmx.de", "web.de", "t-online.de"}
	emailNames   = []string{"jan", "piet", "klaas", "hans", "klaus", "peter", "maria", "anna", "sara", "emma"}
	emailLasts   = []string{"mueller", "schmidt", "schneider", "jansen", "devries", "bakker", "visser", "meijer", "deboer"}
	streets      = []string{
		"Hauptstraße", "Schulstraße", "Bahnhofstraße", "Gartenstraße", "Kirchstraße",
		"Bergstraße", "Waldstraße", "Dorfstraße", "Lindenstraße", "Poststraße",
	}
	cities = []string{
		"Berlin", "Hamburg", "München", "Köln", "Frankfurt",
		"Stuttgart", "Düsseldorf", "Leipzig", "Dortmund", "Essen",
	}
	phonePrefixes = []string{"0151", "0152", "0157", "0159", "0160", "0170", "0171", "0172", "0173", "0174"}
	genericTerms  = []string{"test", "sample", "example", "demo", "trial", "preview", "beta", "review", "check", "verify"}
)

const (
	lowerChars   = "abcdefghijklmnopqrstuvwxyz"
	upperChars   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digitChars   = "0123456789"
	specialChars = "!@#$%^&*"
)

// randomValue generates a value for a randomized input step. The sensitive
// flag is set for passwords so callers redact the value in status and logs.
func randomValue(rng *rand.Rand, step *models.Step) (value string, sensitive bool) {
	randomType := step.RandomType
	if randomType == "" {
		randomType = RandomGenericTerm
	}

	switch randomType {
	case RandomFirstName:
		return pick(rng, firstNames), false
	case RandomLastName:
		return pick(rng, lastNames), false
	case RandomEmail:
		return fmt.Sprintf("%s.%s%d@%s",
			pick(rng, emailNames), pick(rng, emailLasts), rng.Intn(999)+1, pick(rng, emailDomains)), false
	case RandomStreet:
		return pick(rng, streets), false
	case RandomCity:
		return pick(rng, cities), false
	case RandomPhone:
		var digits strings.Builder
		for i := 0; i < 8; i++ {
			digits.WriteByte(digitChars[rng.Intn(10)])
		}
		return pick(rng, phonePrefixes) + digits.String(), false
	case RandomPostalCode:
		return fmt.Sprintf("%d", rng.Intn(90000)+10000), false
	case RandomHouseNumber:
		number := rng.Intn(999) + 1
		if rng.Float64() < 0.1 {
			return fmt.Sprintf("%d%c", number, "abcd"[rng.Intn(4)]), false
		}
		return fmt.Sprintf("%d", number), false
	case RandomPassword:
		return randomPassword(rng, step), true
	default:
		return pick(rng, genericTerms), false
	}
}

func randomPassword(rng *rand.Rand, step *models.Step) string {
	minLength := step.PasswordMinLength
	if minLength <= 0 {
		minLength = 8
	}
	maxLength := step.PasswordMaxLength
	if maxLength < minLength {
		maxLength = 16
	}
	includeUpper := step.PasswordIncludeUpper == nil || *step.PasswordIncludeUpper
	includeNumbers := step.PasswordIncludeNumbers == nil || *step.PasswordIncludeNumbers
	includeSpecial := step.PasswordIncludeSpecial == nil || *step.PasswordIncludeSpecial

	chars := lowerChars
	var must []byte
	if includeUpper {
		chars += upperChars
		must = append(must, upperChars[rng.Intn(len(upperChars))])
	}
	if includeNumbers {
		chars += digitChars
		must = append(must, digitChars[rng.Intn(len(digitChars))])
	}
	if includeSpecial {
		chars += specialChars
		must = append(must, specialChars[rng.Intn(len(specialChars))])
	}

	length := minLength
	if maxLength > minLength {
		length = minLength + rng.Intn(maxLength-minLength+1)
	}
	if length < len(must) {
		length = len(must)
	}

	password := make([]byte, 0, length)
	password = append(password, must...)
	for len(password) < length {
		password = append(password, chars[rng.Intn(len(chars))])
	}
	rng.Shuffle(len(password), func(i, j int) {
		password[i], password[j] = password[j], password[i]
	})

	return string(password)
}

func pick(rng *rand.Rand, values []string) string {
	return values[rng.Intn(len(values))]
}
