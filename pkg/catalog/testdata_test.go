package catalog

func sampleDataset() DeclarativeDataset {
	return DeclarativeDataset{
		ID:    "campaign_channels",
		Title: "Campaign channels",
		Tags:  []string{"Campaign channels"},
		Grain: []Identifier{{ID: "campaign_channel_id", Type: "attribute"}},
		References: []DeclarativeReference{
			{
				Identifier:            Identifier{ID: "campaigns", Type: "dataset"},
				Multivalue:            false,
				SourceColumns:         []string{"Campaign_Id", "Region_Id"},
				SourceColumnDataTypes: []string{"INT", "INT"},
			},
		},
		DataSourceTableID: &DataSourceTableIdentifier{
			ID:           "Campaign_Channels",
			DataSourceID: "demo-ds",
			Type:         "dataSource",
			Path:         []string{"demo", "Campaign_Channels"},
		},
		Attributes: []DeclarativeAttribute{
			{
				ID:           "campaign_channel_id",
				Title:        "Campaign channel id",
				SourceColumn: "Campaign_Channel_Id",
				SortColumn:   "Campaign_Channel_Name",
				Labels: []DeclarativeLabel{
					{ID: "campaign_channel_id.name", Title: "Name", SourceColumn: "Campaign_Channel_Name"},
				},
			},
		},
		Facts: []DeclarativeFact{
			{ID: "budget", Title: "Budget", SourceColumn: "Budget", SourceColumnDataType: "NUMERIC"},
		},
		WorkspaceDataFilterColumns: []WorkspaceDataFilterColumn{{Name: "wdf__region", DataType: "STRING"}},
	}
}

func sampleDateDataset() DeclarativeDateDataset {
	return DeclarativeDateDataset{
		ID:            "date",
		Title:         "Date",
		Granularities: []string{"DAY", "MONTH", "YEAR"},
		GranularitiesFormatting: GranularitiesFormatting{
			TitleBase:    "",
			TitlePattern: "%titleBase - %granularityTitle",
		},
	}
}

func sampleWorkspaces() *DeclarativeWorkspaces {
	return &DeclarativeWorkspaces{
		Workspaces: []DeclarativeWorkspace{
			{
				ID:   "demo",
				Name: "Demo",
				Model: &DeclarativeModel{Ldm: &DeclarativeLdm{
					Datasets:      []DeclarativeDataset{sampleDataset()},
					DateInstances: []DeclarativeDateDataset{sampleDateDataset()},
					DatasetExtensions: []DeclarativeDatasetExtension{
						{
							ID: "campaign_channels",
							WorkspaceDataFilterReferences: []WorkspaceDataFilterReference{
								{FilterID: Identifier{ID: "wdf_region", Type: "workspaceDataFilter"}, FilterColumn: "wdf__region", FilterColumnDataType: "STRING"},
							},
						},
					},
				}},
				Settings: []Setting{{ID: "locale", Type: "LOCALE", Content: map[string]any{"value": "en-US"}}},
				Analytics: map[string]any{
					"metrics": []any{map[string]any{"id": "revenue", "title": "Revenue"}},
				},
			},
			{
				ID:     "demo_west",
				Name:   "Demo West",
				Parent: &Identifier{ID: "demo", Type: "workspace"},
			},
		},
	}
}
