package config

import (
	"errors"
	"log"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// DocumentDefaults are the texts pre-filled into new invoices and quotations.
type DocumentDefaults struct {
	PaymentTerms          string `mapstructure:"paymentTerms"`
	QuotationTerms        string `mapstructure:"quotationTerms"`
	TermsAndConditions    string `mapstructure:"termsAndConditions"`
	BankAccountDetails    string `mapstructure:"bankAccountDetails"`
	QuotationValidityDays int    `mapstructure:"quotationValidityDays"`
	FooterNote            string `mapstructure:"footerNote"`
	CurrencyPrefix        string `mapstructure:"currencyPrefix"`
}

func DefaultDocumentDefaults() DocumentDefaults {
	return DocumentDefaults{
		PaymentTerms:          "50% advance payment, remaining balance due on delivery.",
		QuotationTerms:        "50% advance payment on order confirmation, remaining balance due on delivery.",
		TermsAndConditions:    "Goods once sold will not be taken back. Subject to local jurisdiction.",
		BankAccountDetails:    "",
		QuotationValidityDays: 30,
		FooterNote:            "This is a system-generated document, no signature is required.",
		CurrencyPrefix:        "Rs.",
	}
}

type DocumentDefaultsHolder struct {
	current atomic.Value // holds DocumentDefaults
}

// NewStaticDocumentDefaults returns a holder that never reloads.
func NewStaticDocumentDefaults(d DocumentDefaults) *DocumentDefaultsHolder {
	holder := &DocumentDefaultsHolder{}
	holder.current.Store(d)
	return holder
}

// NewDocumentDefaultsHolder reads documents.yml (or the explicit path) and
// watches it for changes. A missing file falls back to the built-in defaults.
func NewDocumentDefaultsHolder(path string) (*DocumentDefaultsHolder, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("documents")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/invoicer")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("INVOICER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultDocumentDefaults()
	v.SetDefault("documents.paymentTerms", defaults.PaymentTerms)
	v.SetDefault("documents.quotationTerms", defaults.QuotationTerms)
	v.SetDefault("documents.termsAndConditions", defaults.TermsAndConditions)
	v.SetDefault("documents.bankAccountDetails", defaults.BankAccountDetails)
	v.SetDefault("documents.quotationValidityDays", defaults.QuotationValidityDays)
	v.SetDefault("documents.footerNote", defaults.FooterNote)
	v.SetDefault("documents.currencyPrefix", defaults.CurrencyPrefix)

	watch := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		watch = false
	}

	var cfg DocumentDefaults
	if err := v.UnmarshalKey("documents", &cfg); err != nil {
		return nil, err
	}
	if err := validateDocumentDefaults(cfg); err != nil {
		return nil, err
	}

	holder := &DocumentDefaultsHolder{}
	holder.current.Store(cfg)

	if watch {
		v.OnConfigChange(func(e fsnotify.Event) {
			var updated DocumentDefaults
			if err := v.UnmarshalKey("documents", &updated); err != nil {
				log.Printf("[document-defaults] reload failed: %v", err)
				return
			}
			if err := validateDocumentDefaults(updated); err != nil {
				log.Printf("[document-defaults] invalid config ignored: %v", err)
				return
			}
			holder.current.Store(updated)
			log.Printf("[document-defaults] reloaded from %s", filepath.Base(e.Name))
		})
		v.WatchConfig()
	}

	return holder, nil
}

func (h *DocumentDefaultsHolder) Get() DocumentDefaults {
	return h.current.Load().(DocumentDefaults)
}

func validateDocumentDefaults(cfg DocumentDefaults) error {
	if cfg.QuotationValidityDays <= 0 {
		return errors.New("documents.quotationValidityDays must be positive")
	}
	return nil
}
