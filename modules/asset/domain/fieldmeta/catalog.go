package fieldmeta

import "github.com/jacksonlee411/assetdesk/modules/asset/domain/types"

func text(label, name string) types.FieldDefinition {
	return types.FieldDefinition{Label: label, Name: name, Kind: types.FieldText}
}

func number(label, name string) types.FieldDefinition {
	return types.FieldDefinition{Label: label, Name: name, Kind: types.FieldNumber}
}

func date(label, name string) types.FieldDefinition {
	return types.FieldDefinition{Label: label, Name: name, Kind: types.FieldDate}
}

func selectField(label, name string) types.FieldDefinition {
	return types.FieldDefinition{Label: label, Name: name, Kind: types.FieldSelect}
}

func datalist(label, name string) types.FieldDefinition {
	return types.FieldDefinition{Label: label, Name: name, Kind: types.FieldDatalist, Options: []string{}}
}

// masterFields is the catalog new types are composed from. Names are unique.
var masterFields = []types.FieldDefinition{
	text("Previous Employee", "prev_emp"),
	text("Username", "username"),
	text("Previous Employee Code", "prev_emp_code"),
	text("User Code", "user_code"),
	text("Area of Collection", "area_of_collection"),
	text("Area", "area"),
	selectField("State", FieldState),
	number("Amount", FieldAmount),
	number("GST (18%)", "gst_18"),
	number("GST (22%)", "gst_22"),
	number("GST (28%)", "gst_28"),
	number("Total", FieldTotal),
	date("Date of Purchase", "purchase_date"),
	date("Previous Given Date", "prev_given_date"),
	date("Given Date", "given_date"),
	date("Collected Date", "collected_date"),
	text("Year", "year"),
	selectField("Status", FieldStatus),
	text("Remarks", FieldRemarks),
	text("Invoice No.", "invoice_no"),
	datalist("Vendor", "vendor"),
	text("License", "license"),
	text("Asset Tag", "asset_tag"),
	text("Serial No.", "serial_no"),
	datalist("OS", "os"),
	datalist("Model", "model"),
	datalist("System Manufacturer", "system_manufacturer"),
	text("Domain", "domain"),
	text("IP Address", "ip_address"),
	text("Processor", "processor"),
	text("RAM", "ram"),
	text("Courier by", "courier_by"),
	text("HDD Size", "hdd"),
	text("Endpoint Name", "endpoint_name"),
	text("Received on Approval", "received_on_approval"),
	text("Storage", "storage"),
	text("IMEI-1", "imei1"),
	text("IMEI-2", "imei2"),
	text("IT Tag", "it_tag"),
	text("Accounts Tag", "accounts_tag"),
	text("Employee code", "employee_code"),
	text("Employee name", "employee_name"),
	text("Sent by", "send_by"),
	datalist("System Model", "system_model"),
	text("Received", "received"),
	text("Asset Tag (CPU)", "cpu_asset_tag"),
	text("IT Tag (CPU)", "IT_tagC"),
	text("Accounts Tag (CPU)", "accounts_tagC"),
	text("Main circuit board", "main_circuit_board"),
	text("MTR Asset Tag", "mtr_asset_tag"),
	text("Asset Tag (Monitor)", "monitor_asset_tag"),
	text("IT Tag (MTR)", "IT_tagM"),
	text("Accounts Tag (MTR)", "accounts_tagM"),
	text("Monitor Make", "monitor_make"),
	datalist("HDD Type", "hdd_type"),
	datalist("Battery Type", "battery_type"),
	text("Free Space", "free_space"),
}

var masterByName = func() map[string]types.FieldDefinition {
	out := make(map[string]types.FieldDefinition, len(masterFields))
	for _, f := range masterFields {
		out[f.Name] = f
	}
	return out
}()

// MasterFields returns a copy of the catalog in display order.
func MasterFields() []types.FieldDefinition {
	out := make([]types.FieldDefinition, 0, len(masterFields))
	for _, f := range masterFields {
		out = append(out, cloneField(f))
	}
	return out
}

func LookupMasterField(name string) (types.FieldDefinition, bool) {
	f, ok := masterByName[name]
	if !ok {
		return types.FieldDefinition{}, false
	}
	return cloneField(f), true
}

// SelectMasterFields keeps catalog order and ignores unknown names.
func SelectMasterFields(names []string) []types.FieldDefinition {
	want := make(map[string]struct{}, len(names))
	for _, n := range names {
		want[n] = struct{}{}
	}
	var out []types.FieldDefinition
	for _, f := range masterFields {
		if _, ok := want[f.Name]; ok {
			out = append(out, cloneField(f))
		}
	}
	return out
}

func cloneField(f types.FieldDefinition) types.FieldDefinition {
	if f.Options != nil {
		f.Options = append([]string{}, f.Options...)
	}
	return f
}

var seedTypes = []struct {
	name   string
	fields []string
}{
	{"Mobile", []string{"model", "purchase_date", "vendor", "ram", "storage", "imei1", "imei2", "invoice_no", "amount", "gst_18", "total", "given_date", "employee_code", "employee_name", "area", "state", "status", "remarks"}},
	{"Barcode Scanner", []string{"model", "serial_no", "given_date", "area", "state", "vendor", "amount", "gst_18", "total", "purchase_date", "invoice_no", "send_by", "status", "remarks"}},
	{"Face Machine", []string{"model", "serial_no", "purchase_date", "vendor", "area", "amount", "gst_18", "total", "status", "remarks"}},
	{"Franchise TAB", []string{"model", "serial_no", "purchase_date", "vendor", "given_date", "area", "state", "invoice_no", "amount", "gst_18", "total", "status", "remarks"}},
	{"Franchise Printer", []string{"model", "serial_no", "purchase_date", "vendor", "given_date", "area", "state", "amount", "gst_18", "total", "invoice_no", "send_by", "status", "remarks"}},
	{"Franchise Inv", []string{"endpoint_name", "given_date", "os", "system_model", "system_manufacturer", "serial_no", "processor", "ram", "hdd", "received", "vendor", "invoice_no", "amount", "gst_18", "total", "status", "remarks"}},
	{"Laptop", []string{"given_date", "serial_no", "purchase_date", "vendor", "license", "os", "system_model", "system_manufacturer", "processor", "ram", "hdd", "free_space", "invoice_no", "amount", "gst_18", "total", "received_on_approval", "status", "remarks"}},
	{"IP Phones", []string{"model", "serial_no", "purchase_date", "area", "courier_by", "amount", "gst_18", "total", "status", "remarks"}},
	{"Printer", []string{"model", "purchase_date", "vendor", "serial_no", "given_date", "domain", "ip_address", "invoice_no", "amount", "gst_18", "total", "status", "remarks"}},
	{"Desktop", []string{"domain", "os", "system_model", "system_manufacturer", "main_circuit_board", "processor", "ram", "hdd", "monitor_make", "serial_no", "year", "vendor", "purchase_date", "invoice_no", "amount", "gst_18", "total", "given_date", "status", "remarks"}},
	{"All-in-one", []string{"purchase_date", "vendor", "given_date", "domain", "ip_address", "os", "system_model", "system_manufacturer", "main_circuit_board", "processor", "ram", "hdd", "invoice_no", "amount", "gst_18", "total", "status", "remarks"}},
	{"Mouse", []string{"model", "purchase_date", "vendor", "serial_no", "given_date", "area", "state", "invoice_no", "amount", "gst_18", "total", "status", "remarks"}},
	{"KBD", []string{"model", "purchase_date", "vendor", "serial_no", "given_date", "area", "state", "invoice_no", "amount", "gst_18", "total", "status", "remarks"}},
	{"HDD", []string{"model", "hdd_type", "purchase_date", "vendor", "serial_no", "given_date", "area", "state", "invoice_no", "amount", "gst_18", "total", "status", "remarks"}},
	{"Battery", []string{"model", "battery_type", "purchase_date", "vendor", "serial_no", "given_date", "area", "state", "invoice_no", "amount", "gst_18", "total", "status", "remarks"}},
}

// SeedAssetTypes is the starter catalog loaded by dbtool seed-types. Field order
// follows each type's list, not the master catalog.
func SeedAssetTypes() []types.AssetType {
	out := make([]types.AssetType, 0, len(seedTypes))
	for _, s := range seedTypes {
		t := types.AssetType{Name: s.name}
		for _, name := range s.fields {
			if f, ok := masterByName[name]; ok {
				t.Fields = append(t.Fields, cloneField(f))
			}
		}
		out = append(out, t)
	}
	return out
}
