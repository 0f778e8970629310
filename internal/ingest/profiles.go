package ingest

import (
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"

	"github.com/AngelCh415/adboard/internal/models"
)

// Profile describes one upload source: where its header sits, how its
// columns are named and which conversions apply.
type Profile struct {
	Name             string      `json:"name" validate:"required,lowercase"`
	Account          string      `json:"account" validate:"required"`
	Kind             models.Kind `json:"kind" validate:"oneof=ads notes"`
	HeaderRow        int         `json:"headerRow" validate:"oneof=0 1"`
	Aliases          Aliases     `json:"-" validate:"required"`
	ConvertCurrency  bool        `json:"convertCurrency"`
	CurrencyRate     float64     `json:"currencyRate,omitempty" validate:"gte=0"`
	DropSummaryLines bool        `json:"dropSummaryLines"`
	SummaryPrefixes  []string    `json:"-"`
	NoteFilter       NoteFilter  `json:"-"`
	// PersistFile, when set, is the public JSON artifact rewritten on every upload.
	PersistFile string `json:"persistFile,omitempty" validate:"omitempty,endswith=.json"`
}

var profileValidator = validator.New()

func (p Profile) Validate() error {
	if err := profileValidator.Struct(p); err != nil {
		return fmt.Errorf("profile %q: %w", p.Name, err)
	}
	if p.ConvertCurrency && p.CurrencyRate <= 0 {
		return fmt.Errorf("profile %q: currency conversion needs a positive rate", p.Name)
	}
	return nil
}

var adsAliases = Aliases{
	FieldDate:            {"时间", "日期", "date"},
	FieldCost:            {"消费", "花费", "cost"},
	FieldImpressions:     {"展现量", "曝光量", "impressions"},
	FieldClicks:          {"点击量", "点击数", "clicks"},
	FieldClickRate:       {"点击率", "ctr"},
	FieldInteractions:    {"互动量", "互动数"},
	FieldFollowers:       {"关注量", "新增关注"},
	FieldSaves:           {"收藏量", "收藏数"},
	FieldLikes:           {"点赞量", "点赞数"},
	FieldComments:        {"评论量", "评论数"},
	FieldShares:          {"分享量", "分享数"},
	FieldConversions:     {"转化量", "转化数"},
	FieldConversionCost:  {"转化成本", "平均转化成本"},
	FieldCostPerMille:    {"千次展现成本", "平均千次展现费用", "cpm"},
	FieldActionClicks:    {"行动按钮点击量"},
	FieldActionClickRate: {"行动按钮点击率"},
}

var noteAliases = Aliases{
	FieldPublishTime: {"首次发布时间", "发布时间"},
	FieldNoteType:    {"体裁", "笔记类型"},
	FieldNoteName:    {"笔记标题", "标题"},
	FieldNoteLink:    {"笔记链接", "链接"},
	FieldNoteStatus:  {"笔记状态", "状态"},
}

func withOverrides(base Aliases, overrides Aliases) Aliases {
	out := make(Aliases, len(base))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

func noteFilter(a Aliases) NoteFilter {
	return NoteFilter{
		StatusFields:      a[FieldNoteStatus],
		ExcludedStatuses:  DefaultExcludedStatuses,
		PublishTimeFields: a[FieldPublishTime],
		ExcludedPrefix:    DefaultProfessionalPrefix,
	}
}

// DefaultProfiles returns the built-in sources for both accounts.
func DefaultProfiles(currencyRate float64) []Profile {
	if currencyRate <= 0 {
		currencyRate = DefaultCurrencyRate
	}
	return []Profile{
		{
			Name:             "xiaowang-ads",
			Account:          "XiaoWang",
			Kind:             models.KindAds,
			HeaderRow:        HeaderFirstRow,
			Aliases:          adsAliases,
			DropSummaryLines: true,
			SummaryPrefixes:  DefaultSummaryPrefixes,
		},
		{
			Name:      "lifecar-ads",
			Account:   "LifeCar",
			Kind:      models.KindAds,
			HeaderRow: HeaderFirstRow,
			Aliases: withOverrides(adsAliases, Aliases{
				FieldCost:         {"花费", "消费", "cost"},
				FieldConversions:  {"转化数", "转化量", "表单提交"},
				FieldActionClicks: {"行动按钮点击量", "组件点击量"},
			}),
			ConvertCurrency:  true,
			CurrencyRate:     currencyRate,
			DropSummaryLines: true,
			SummaryPrefixes:  DefaultSummaryPrefixes,
			PersistFile:      "lifecar-ads.json",
		},
		{
			Name:       "xiaowang-notes",
			Account:    "XiaoWang",
			Kind:       models.KindNotes,
			HeaderRow:  HeaderSecondRow,
			Aliases:    noteAliases,
			NoteFilter: noteFilter(noteAliases),
		},
		{
			Name:       "lifecar-notes",
			Account:    "LifeCar",
			Kind:       models.KindNotes,
			HeaderRow:  HeaderSecondRow,
			Aliases:    noteAliases,
			NoteFilter: noteFilter(noteAliases),
		},
	}
}

type Registry struct {
	byName map[string]Profile
}

func NewRegistry(profiles ...Profile) (*Registry, error) {
	r := &Registry{byName: make(map[string]Profile, len(profiles))}
	for _, p := range profiles {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.byName[p.Name]; dup {
			return nil, fmt.Errorf("duplicate profile %q", p.Name)
		}
		r.byName[p.Name] = p
	}
	return r, nil
}

func (r *Registry) Get(name string) (Profile, bool) {
	p, ok := r.byName[name]
	return p, ok
}

func (r *Registry) List() []Profile {
	out := make([]Profile, 0, len(r.byName))
	for _, p := range r.byName {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
