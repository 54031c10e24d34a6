package sqlinline

// Donation statements. Every statement returns the full column set in the
// same order so repositories can share one scanner.

const QEnsureDonationsTable = `--sql 5fe81ba9-0ae6-43f9-90ce-93f2fb356553
create table if not exists donations (
  id text primary key,
  amount numeric not null constraint donations_amount_positive check (amount > 0),
  currency text not null default 'USD',
  is_other_amount boolean not null default false,
  source text not null default 'payment_page',
  payment_status text not null default 'completed',
  payment_method text,
  transaction_id text,
  member_email text,
  member_name text,
  metadata jsonb,
  created_at timestamptz not null default now(),
  updated_at timestamptz not null default now(),
  constraint donations_updated_after_created check (updated_at >= created_at)
);
`

const QEnsureDonationsCreatedAtIndex = `--sql fd4dd9c8-9cf8-48e3-bfa6-1d01bfa697df
create index if not exists donations_created_at_idx on donations (created_at desc, id desc);
`

const QInsertDonation = `--sql cf57fedd-ffe2-48ad-a325-7fa5a0b679eb
insert into donations(id, amount, currency, is_other_amount, source, payment_status, payment_method, transaction_id, member_email, member_name, metadata, created_at, updated_at)
values ($1::text, $2::numeric, $3::text, $4::boolean, $5::text, $6::text, $7::text, $8::text, $9::text, $10::text, $11::jsonb, $12::timestamptz, $13::timestamptz)
returning id, amount::text, currency, is_other_amount, source, payment_status, payment_method, transaction_id, member_email, member_name, metadata, created_at, updated_at;
`

const QSelectDonationByID = `--sql 0f63c1f1-f547-4fdc-b2c5-74513be709f4
select id, amount::text, currency, is_other_amount, source, payment_status, payment_method, transaction_id, member_email, member_name, metadata, created_at, updated_at
from donations
where id = $1::text;
`

const QSelectLatestDonation = `--sql 01f890ec-2a8c-45a0-8990-a8732d98db0b
select id, amount::text, currency, is_other_amount, source, payment_status, payment_method, transaction_id, member_email, member_name, metadata, created_at, updated_at
from donations
order by created_at desc, id desc
limit 1;
`

// QUpdateDonation applies a partial update. Each mutable column is paired
// with a boolean flag; unflagged columns keep their stored value.
const QUpdateDonation = `--sql 146935a7-31e4-4ca7-adf4-bcc3d7d15501
update donations set
  payment_status = case when $2::boolean then $3::text else payment_status end,
  payment_method = case when $4::boolean then $5::text else payment_method end,
  transaction_id = case when $6::boolean then $7::text else transaction_id end,
  member_email = case when $8::boolean then $9::text else member_email end,
  member_name = case when $10::boolean then $11::text else member_name end,
  metadata = case when $12::boolean then $13::jsonb else metadata end,
  updated_at = greatest(clock_timestamp(), created_at + interval '1 microsecond')
where id = $1::text
returning id, amount::text, currency, is_other_amount, source, payment_status, payment_method, transaction_id, member_email, member_name, metadata, created_at, updated_at;
`

const QCountDonations = `--sql 75480d03-50e6-4997-828d-bde55af1363e
select count(*) from donations;
`

const QListDonations = `--sql 5f6ed47d-cfde-4dfc-ab69-030927ed2db6
select id, amount::text, currency, is_other_amount, source, payment_status, payment_method, transaction_id, member_email, member_name, metadata, created_at, updated_at
from donations
order by created_at desc, id desc
limit $1::bigint offset $2::bigint;
`

const QListAllDonations = `--sql ffdf63fb-3a3a-44e4-b250-2fb2d8a27ebb
select id, amount::text, currency, is_other_amount, source, payment_status, payment_method, transaction_id, member_email, member_name, metadata, created_at, updated_at
from donations
order by created_at desc, id desc;
`

const QStoreNow = `--sql dcdfbde2-a4e6-4c10-bff8-1943f53747e3
select now();
`
